// Package repl is the interactive shell for working through one wedding's
// checklist. It keeps a live snapshot of the wedding's tasks through the
// storage subscription and sends every change through the lifecycle
// controller.
package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/chzyer/readline"
	"github.com/fatih/color"

	"github.com/lovenda/lovenda/internal/lifecycle"
	"github.com/lovenda/lovenda/internal/storage"
	"github.com/lovenda/lovenda/internal/tasksync"
	"github.com/lovenda/lovenda/internal/types"
)

// REPL represents the interactive shell
type REPL struct {
	store     storage.Storage
	ctrl      *lifecycle.Controller
	regen     *tasksync.Regenerator
	weddingID string
	actor     string
	now       func() time.Time
	out       io.Writer
	history   string

	rl       *readline.Instance
	ctx      context.Context
	commands map[string]command

	mu      sync.RWMutex
	tasks   []types.Task
	version int64
}

// CommandHandler handles a specific command
type CommandHandler func(args []string) error

type command struct {
	handler CommandHandler
	usage   string
	help    string
	taskArg bool
}

// Config holds REPL configuration
type Config struct {
	Store      storage.Storage
	Controller *lifecycle.Controller
	// Regenerator enables the regen command when set
	Regenerator *tasksync.Regenerator
	WeddingID   string
	Actor       string
	Now         func() time.Time
	Out         io.Writer
	HistoryFile string
}

// New creates a new REPL instance
func New(cfg *Config) (*REPL, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("storage is required")
	}
	if cfg.Controller == nil {
		return nil, fmt.Errorf("controller is required")
	}
	if cfg.WeddingID == "" {
		return nil, fmt.Errorf("wedding id is required")
	}

	r := &REPL{
		store:     cfg.Store,
		ctrl:      cfg.Controller,
		regen:     cfg.Regenerator,
		weddingID: cfg.WeddingID,
		actor:     cfg.Actor,
		now:       cfg.Now,
		out:       cfg.Out,
		history:   cfg.HistoryFile,
		ctx:       context.Background(),
		commands:  make(map[string]command),
	}
	if r.actor == "" {
		r.actor = lifecycle.DefaultActor
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.out == nil {
		r.out = os.Stdout
	}

	r.registerCommands()
	return r, nil
}

// Attach follows changes to the wedding's tasks and loads the current list.
// The returned function stops following.
func (r *REPL) Attach(ctx context.Context) (func(), error) {
	r.ctx = ctx
	stop := r.store.Subscribe(r.weddingID, r.onSnapshot)

	tasks, err := r.store.ListTasks(ctx, r.weddingID)
	if err != nil {
		stop()
		return nil, fmt.Errorf("failed to load tasks: %w", err)
	}
	r.mu.Lock()
	// a snapshot published while loading is at least as new as tasks
	if r.version == 0 {
		r.tasks = tasks
	}
	r.mu.Unlock()
	return stop, nil
}

func (r *REPL) onSnapshot(s types.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.Version < r.version {
		return
	}
	r.version = s.Version
	r.tasks = s.Tasks
}

// snapshot returns the latest known task list; callers must not modify it
func (r *REPL) snapshot() []types.Task {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tasks
}

// Run starts the REPL loop
func (r *REPL) Run(ctx context.Context) error {
	stop, err := r.Attach(ctx)
	if err != nil {
		return err
	}
	defer stop()

	cyan := color.New(color.FgCyan).SprintFunc()
	rl, err := readline.NewEx(&readline.Config{
		Prompt:            cyan(r.weddingID + "> "),
		HistoryFile:       r.history,
		AutoComplete:      r.completer(),
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()
	r.rl = rl

	r.printWelcome()

	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			} else if errors.Is(err, io.EOF) {
				fmt.Fprintln(r.out, "\nGoodbye!")
				return nil
			}
			return err
		}

		if err := r.processInput(line); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			red := color.New(color.FgRed).SprintFunc()
			fmt.Fprintf(r.out, "%s %v\n", red("Error:"), err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// processInput processes a single line of input
func (r *REPL) processInput(line string) error {
	parts := strings.Fields(strings.TrimSpace(line))
	if len(parts) == 0 {
		return nil
	}

	cmd, ok := r.commands[parts[0]]
	if !ok {
		yellow := color.New(color.FgYellow).SprintFunc()
		fmt.Fprintf(r.out, "%s Unknown command %q. Use 'help' for available commands.\n", yellow("Note:"), parts[0])
		return nil
	}
	return cmd.handler(parts[1:])
}

// completer offers command names, then task id prefixes for commands that take one
func (r *REPL) completer() readline.AutoCompleter {
	ids := readline.PcItemDynamic(func(string) []string {
		tasks := r.snapshot()
		out := make([]string, 0, len(tasks))
		for i := range tasks {
			out = append(out, shortID(tasks[i].ID))
		}
		return out
	})

	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)

	items := make([]readline.PrefixCompleterInterface, 0, len(names))
	for _, name := range names {
		if r.commands[name].taskArg {
			items = append(items, readline.PcItem(name, ids))
		} else {
			items = append(items, readline.PcItem(name))
		}
	}
	return readline.NewPrefixCompleter(items...)
}

// printWelcome prints the welcome message
func (r *REPL) printWelcome() {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	fmt.Fprintf(r.out, "\n%s\n", cyan("lovenda shell · "+r.weddingID))
	fmt.Fprintf(r.out, "%d tasks loaded\n\n", len(r.snapshot()))
	fmt.Fprintln(r.out, "Type 'help' for available commands, 'exit' to quit")
	fmt.Fprintln(r.out)
}

func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}
