package main

import (
	"context"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/critiq-ai/critiq/agent"
	"github.com/critiq-ai/critiq/config"
	"github.com/critiq-ai/critiq/llm"
	"github.com/critiq-ai/critiq/log"
	"github.com/critiq-ai/critiq/relay"
	"github.com/critiq-ai/critiq/session"
	"github.com/critiq-ai/critiq/tool"
)

var (
	workerID    string
	workerRelay string
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Attach the agent to a relay as a worker",
	Long: `Connect to a relay server, register under an agent id, and answer
messages from other agents. Each sender gets its own session, so
conversations stay isolated and turns within one conversation run in
order.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return workerRun(cmd)
	},
}

func init() {
	workerCmd.Flags().StringVar(&workerID, "id", "critiq-worker", "Agent id to register under")
	workerCmd.Flags().StringVar(&workerRelay, "relay", "ws://localhost:8765", "Relay server URL")
	rootCmd.AddCommand(workerCmd)
}

func workerRun(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, cleanup, err := newSessionStore(cmd, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	model, err := llm.NewOpenAI(llm.WithModel(cfg.Model))
	if err != nil {
		return err
	}

	registry := tool.NewRegistry()
	registry.MustRegister(tool.Descriptor{Tool: tool.NewDateTime(), Priority: 0})
	registry.MustRegister(tool.Descriptor{
		Tool:     tool.NewWebScrape(),
		Priority: 1,
		Condition: func(sess *session.Session, input string) bool {
			return strings.Contains(input, "http://") || strings.Contains(input, "https://")
		},
	})

	ag, err := agent.New(model, registry,
		agent.WithName(workerID),
		agent.WithLogger(logger))
	if err != nil {
		return err
	}

	client, err := relay.Dial(ctx, workerRelay, workerID,
		relay.WithDescription("review-classification assistant"),
		relay.WithCapabilities("chat", "webscrape", "datetime"))
	if err != nil {
		return err
	}
	defer client.Close()
	logger.Info("worker %s registered on %s", workerID, workerRelay)

	w := &worker{
		client:   client,
		agent:    ag,
		store:    store,
		logger:   logger,
		capacity: cfg.QueueCapacity,
		sessions: make(map[string]*session.Session),
	}
	return w.run(ctx)
}

// worker fans relay messages out to per-sender session loops and relays
// each assistant reply back to the sender.
type worker struct {
	client   *relay.Client
	agent    *agent.Agent
	store    session.Store
	logger   log.Logger
	capacity int

	mu       sync.Mutex
	sessions map[string]*session.Session
	wg       sync.WaitGroup
}

func (w *worker) run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer w.wg.Wait()

	// Receive blocks on the socket, not on ctx; closing the client on
	// cancellation unblocks it.
	go func() {
		<-ctx.Done()
		w.client.Close()
	}()

	for {
		env, err := w.client.Receive()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if env.MessageType != relay.TypeMessage || env.SenderID == "" {
			continue
		}

		sess := w.sessionFor(ctx, env.SenderID)
		if err := sess.Enqueue(ctx, env.Message); err != nil {
			return err
		}
	}
}

func (w *worker) sessionFor(ctx context.Context, senderID string) *session.Session {
	w.mu.Lock()
	defer w.mu.Unlock()

	if sess, ok := w.sessions[senderID]; ok {
		return sess
	}

	sess := w.restore(ctx, senderID)
	w.sessions[senderID] = sess

	loop := session.NewLoop(sess, w.agent.Turn,
		session.WithStore(w.store),
		session.WithLogger(w.logger),
		session.WithReplyHandler(func(m session.Message) {
			if err := w.client.Send(senderID, m.Content); err != nil {
				w.logger.Warn("worker: reply to %s failed: %v", senderID, err)
			}
		}),
	)
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		loop.Run(ctx)
	}()

	return sess
}

func (w *worker) restore(ctx context.Context, senderID string) *session.Session {
	threadID := w.client.AgentID() + ":" + senderID
	snap, err := w.store.Load(ctx, threadID)
	if err != nil {
		return session.NewWithCapacity(threadID, w.capacity)
	}
	restored := session.Restore(snap)
	w.logger.Info("worker: resumed thread %s with %d messages", threadID, len(restored.Messages))
	if last, ok := restored.LastAssistant(); ok {
		w.logger.Debug("worker: last reply on %s: %s", threadID, last.Content)
	}
	return restored
}
