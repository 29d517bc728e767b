package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/critiq-ai/critiq/agent"
	"github.com/critiq-ai/critiq/config"
	"github.com/critiq-ai/critiq/llm"
	"github.com/critiq-ai/critiq/session"
	"github.com/critiq-ai/critiq/tool"
)

var chatThread string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the agent interactively",
	Long: `Start an interactive session with the plan-act-critique agent.
Sessions persist under their thread id; pass --thread to resume one.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return chatRun(cmd)
	},
}

func init() {
	chatCmd.Flags().StringVar(&chatThread, "thread", "", "Thread id to resume (default: new session)")
	rootCmd.AddCommand(chatCmd)
}

var (
	promptStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	infoStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
)

func chatRun(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger()
	ctx := cmd.Context()

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
	registry.MustRegister(tool.Descriptor{
		Tool:     tool.NewDateTime(),
		Priority: 0,
	})
	registry.MustRegister(tool.Descriptor{
		Tool:     tool.NewWebScrape(),
		Priority: 1,
		Condition: func(sess *session.Session, input string) bool {
			return strings.Contains(input, "http://") || strings.Contains(input, "https://")
		},
	})

	ag, err := agent.New(model, registry, agent.WithLogger(logger))
	if err != nil {
		return err
	}

	threadID := chatThread
	if threadID == "" {
		threadID = uuid.NewString()
	}

	sess, err := resumeSession(cmd, store, threadID)
	if err != nil {
		return err
	}

	fmt.Println(infoStyle.Render(fmt.Sprintf("thread %s, %d messages (exit to quit)", threadID, len(sess.Messages))))

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(promptStyle.Render("you> "))
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}

		msgs, err := ag.Turn(ctx, sess, line)
		if err != nil {
			fmt.Println(errorStyle.Render(fmt.Sprintf("An error occurred: %v", err)))
			continue
		}

		sess.Append(msgs...)
		for _, m := range msgs {
			if m.Role == session.RoleAssistant {
				fmt.Println(assistantStyle.Render(m.Content))
			}
		}

		if err := store.Save(ctx, sess.Snapshot()); err != nil {
			logger.Error("session %s: checkpoint save failed: %v", sess.ID, err)
		}
	}
	return scanner.Err()
}

func resumeSession(cmd *cobra.Command, store session.Store, threadID string) (*session.Session, error) {
	snap, err := store.Load(cmd.Context(), threadID)
	if errors.Is(err, session.ErrNotFound) {
		return session.New(threadID), nil
	}
	if err != nil {
		return nil, err
	}
	return session.Restore(snap), nil
}
