package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/raphaelgruber/converse-go/internal/chat"
	"github.com/raphaelgruber/converse-go/internal/models"
)

var (
	chatNotes      []string
	chatURLs       []string
	chatFolders    []string
	chatTags       []string
	chatSelections []string
)

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Send a message or start an interactive conversation",
	Long: `Chat in the current project's conversation.

With a message argument (or piped stdin) the reply streams to stdout and the
command exits. Without arguments on a terminal an interactive session starts;
type /help there for message editing commands.

Context references attach to the message and are resolved to live content on
every model call. Inline [[note]] references in the message text attach the
named vault note automatically.

Examples:
  converse chat "summarize [[architecture]] for a new teammate"
  converse chat --url https://go.dev/doc/go1.25 "what's relevant for us?"
  git diff | converse chat
  converse chat`,
	Args: cobra.MaximumNArgs(1),
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringSliceVar(&chatNotes, "note", nil, "attach a vault note by name")
	chatCmd.Flags().StringSliceVar(&chatURLs, "url", nil, "attach a web page")
	chatCmd.Flags().StringSliceVar(&chatFolders, "folder", nil, "attach a vault folder listing")
	chatCmd.Flags().StringSliceVar(&chatTags, "tag", nil, "attach a tag")
	chatCmd.Flags().StringSliceVar(&chatSelections, "selection", nil, "attach a text selection")
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	o, err := newOrchestrator(ctx)
	if err != nil {
		return err
	}
	o.SwitchTo("")
	if err := o.Rehydrate(ctx); err != nil {
		logger.Warn("could not rehydrate transcript", "error", err)
	}

	printer := newStreamPrinter(o, os.Stdout)
	defer printer.Close()

	attach := models.Context{
		Notes:      chatNotes,
		URLs:       chatURLs,
		Folders:    chatFolders,
		Tags:       chatTags,
		Selections: chatSelections,
	}

	if len(args) == 1 {
		_, err := o.Send(ctx, args[0], attach)
		return err
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		input, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		text := strings.TrimSpace(string(input))
		if text == "" {
			return fmt.Errorf("empty message on stdin")
		}
		_, err = o.Send(ctx, text, attach)
		return err
	}

	return runREPL(ctx, o)
}

// runREPL drives the interactive session. Ctrl+C stops an in-flight
// generation and keeps the session; Ctrl+D exits.
func runREPL(ctx context.Context, o *chat.Orchestrator) error {
	fmt.Printf("Conversation %q. Type /help for commands, Ctrl+D to exit.\n", o.ActiveIdentity())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)
	go func() {
		for range sigCh {
			if !o.Stop() {
				fmt.Println("\nNothing to stop. Use Ctrl+D to exit.")
			}
		}
	}()

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			quit, err := runSlashCommand(ctx, o, line)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}
			if quit {
				return nil
			}
			continue
		}

		if _, err := o.Send(ctx, line, models.Context{}); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}
}

func runSlashCommand(ctx context.Context, o *chat.Orchestrator, line string) (quit bool, err error) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/help":
		fmt.Print(`Commands:
  /history            show the conversation
  /edit <n> <text>    replace message n; editing a user message regenerates
  /regen [n]          regenerate reply n (default: the last one)
  /delete <n>         delete message n
  /switch <project>   switch to another project's conversation
  /clear              discard this conversation
  /quit               exit
`)
		return false, nil

	case "/quit", "/exit":
		return true, nil

	case "/history":
		printHistory(os.Stdout, o.DisplayMessages())
		return false, nil

	case "/clear":
		return false, o.Clear(ctx)

	case "/switch":
		if len(fields) != 2 {
			return false, fmt.Errorf("usage: /switch <project>")
		}
		view := o.SwitchTo(fields[1])
		fmt.Printf("Switched to %q (%d messages).\n", fields[1], len(view))
		if err := o.Rehydrate(ctx); err != nil {
			logger.Warn("could not rehydrate transcript", "error", err)
		}
		return false, nil

	case "/edit":
		if len(fields) < 3 {
			return false, fmt.Errorf("usage: /edit <n> <text>")
		}
		msg, err := messageBySequence(o, fields[1])
		if err != nil {
			return false, err
		}
		text := strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(line, fields[0]), " "+fields[1]))
		return false, o.Edit(ctx, msg.ID, text, msg.Context)

	case "/regen":
		var target models.DisplayMessage
		if len(fields) >= 2 {
			msg, err := messageBySequence(o, fields[1])
			if err != nil {
				return false, err
			}
			target = msg
		} else {
			msgs := o.DisplayMessages()
			found := false
			for i := len(msgs) - 1; i >= 0; i-- {
				if msgs[i].Role == models.RoleAssistant {
					target = msgs[i]
					found = true
					break
				}
			}
			if !found {
				return false, fmt.Errorf("no assistant message to regenerate")
			}
		}
		return false, o.Regenerate(ctx, target.ID)

	case "/delete":
		if len(fields) != 2 {
			return false, fmt.Errorf("usage: /delete <n>")
		}
		msg, err := messageBySequence(o, fields[1])
		if err != nil {
			return false, err
		}
		return false, o.DeleteMessage(ctx, msg.ID)

	default:
		return false, fmt.Errorf("unknown command %s, try /help", fields[0])
	}
}

// messageBySequence resolves a user-typed sequence number to a message.
func messageBySequence(o *chat.Orchestrator, arg string) (models.DisplayMessage, error) {
	seq, err := strconv.Atoi(arg)
	if err != nil {
		return models.DisplayMessage{}, fmt.Errorf("not a message number: %q", arg)
	}
	for _, m := range o.DisplayMessages() {
		if m.Sequence == seq {
			return m, nil
		}
	}
	return models.DisplayMessage{}, fmt.Errorf("no message with number %d", seq)
}

func printHistory(w io.Writer, msgs []models.DisplayMessage) {
	if len(msgs) == 0 {
		fmt.Fprintln(w, "Conversation is empty.")
		return
	}
	for _, m := range msgs {
		marker := ""
		switch m.Status {
		case models.StatusStreaming, models.StatusPending:
			marker = " …"
		case models.StatusError:
			marker = " ✗"
		}
		fmt.Fprintf(w, "[%d] %s%s: %s\n", m.Sequence, m.Role, marker, m.DisplayText)
		if refs := contextRefs(m.Context); refs != "" {
			fmt.Fprintf(w, "     context: %s\n", refs)
		}
	}
}

func contextRefs(c models.Context) string {
	var parts []string
	for _, n := range c.Notes {
		parts = append(parts, "note:"+n)
	}
	for _, u := range c.URLs {
		parts = append(parts, "url:"+u)
	}
	for _, f := range c.Folders {
		parts = append(parts, "folder:"+f)
	}
	for _, t := range c.Tags {
		parts = append(parts, "tag:"+t)
	}
	for range c.Selections {
		parts = append(parts, "selection")
	}
	return strings.Join(parts, ", ")
}

// streamPrinter writes assistant output to w as it streams, driven by bus
// notifications. It re-reads the display view on every change and prints only
// the unseen suffix of the streaming message.
type streamPrinter struct {
	o           *chat.Orchestrator
	w           io.Writer
	unsubscribe func()

	mu       sync.Mutex
	current  uuid.UUID
	printed  int
	finished uuid.UUID
}

func newStreamPrinter(o *chat.Orchestrator, w io.Writer) *streamPrinter {
	p := &streamPrinter{o: o, w: w}
	p.unsubscribe = o.Bus().Subscribe(p.onChange)
	return p
}

func (p *streamPrinter) Close() {
	p.unsubscribe()
}

func (p *streamPrinter) onChange() {
	msgs := p.o.DisplayMessages()
	if len(msgs) == 0 {
		return
	}
	last := msgs[len(msgs)-1]
	if last.Role != models.RoleAssistant {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	switch last.Status {
	case models.StatusStreaming:
		if last.ID != p.current {
			p.current = last.ID
			p.printed = 0
		}
		if len(last.DisplayText) > p.printed {
			fmt.Fprint(p.w, last.DisplayText[p.printed:])
			p.printed = len(last.DisplayText)
		}

	case models.StatusComplete, models.StatusError:
		if last.ID == p.finished {
			return
		}
		if last.ID == p.current {
			if len(last.DisplayText) > p.printed {
				fmt.Fprint(p.w, last.DisplayText[p.printed:])
			}
			fmt.Fprintln(p.w)
		} else if last.Status == models.StatusError {
			fmt.Fprintln(p.w, last.DisplayText)
		} else {
			return
		}
		p.finished = last.ID
		p.current = uuid.Nil
		p.printed = 0
	}
}
