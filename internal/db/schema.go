package db

// SchemaSQL contains the database schema initialization SQL.
// One transcript record per conversation identity; messages are stored as an
// ordered flexible array so the snapshot shape can evolve without migrations.
const SchemaSQL = `
    DEFINE TABLE IF NOT EXISTS transcript SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS identity ON transcript TYPE string;
    DEFINE FIELD IF NOT EXISTS messages ON transcript TYPE array<object> DEFAULT [];
    REMOVE FIELD IF EXISTS messages.* ON transcript;
    DEFINE FIELD messages.* ON transcript TYPE object FLEXIBLE;
    DEFINE FIELD IF NOT EXISTS updated ON transcript TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS transcript_identity ON transcript FIELDS identity UNIQUE;
`
