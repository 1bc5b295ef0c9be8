package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/lazypower/nanobrain/internal/brain"
	"github.com/lazypower/nanobrain/internal/engine"
	"github.com/lazypower/nanobrain/internal/logging"
)

var (
	chatUser     string
	teachUser    string
	toneUser     string
	memoryUser   string
	memoryFull   bool
	memoryFormat string
)

// withEngine opens the configured store, runs fn, and closes the store.
// Commands other than serve talk to the store directly.
func withEngine(fn func(eng *engine.Engine) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := zerolog.Nop()
	if cfg.Logging.Level == "debug" {
		log = logging.New(cfg.Logging)
	}

	st, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	return fn(newEngine(cfg, st, log))
}

var chatCmd = &cobra.Command{
	Use:   "chat [text...]",
	Short: "Send one message and print the reply",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(func(eng *engine.Engine) error {
			reply, err := eng.SubmitMessage(chatUser, strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), reply)
			return nil
		})
	},
}

var teachCmd = &cobra.Command{
	Use:   "teach key=value",
	Short: "Set a context fact or the tone directly",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(func(eng *engine.Engine) error {
			result, err := eng.Teach(teachUser, strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), result)
			return nil
		})
	},
}

var toneCmd = &cobra.Command{
	Use:   "tone <neutral|friendly|formal|funny>",
	Short: "Set the reply tone",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tone, ok := brain.ParseTone(args[0])
		if !ok {
			return fmt.Errorf("unknown tone %q", args[0])
		}
		return withEngine(func(eng *engine.Engine) error {
			stored, err := eng.SetTone(toneUser, string(tone))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "tone set to %s\n", stored)
			return nil
		})
	},
}

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Print what a user's brain holds",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(func(eng *engine.Engine) error {
			mem, err := eng.GetMemory(memoryUser, memoryFull)
			if err != nil {
				return err
			}

			var out []byte
			switch memoryFormat {
			case "yaml":
				out, err = yaml.Marshal(mem)
			case "json", "":
				out, err = json.MarshalIndent(mem, "", "  ")
				out = append(out, '\n')
			default:
				return fmt.Errorf("unknown format %q", memoryFormat)
			}
			if err != nil {
				return fmt.Errorf("encode memory: %w", err)
			}
			cmd.OutOrStdout().Write(out)
			return nil
		})
	},
}

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "List users with a stored brain",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(func(eng *engine.Engine) error {
			users, err := eng.ListUsers()
			if err != nil {
				return err
			}
			if len(users) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No users yet.")
				return nil
			}
			for _, u := range users {
				if u == "" {
					u = `""`
				}
				fmt.Fprintln(cmd.OutOrStdout(), u)
			}
			return nil
		})
	},
}

func init() {
	chatCmd.Flags().StringVarP(&chatUser, "user", "u", "guest", "user id")
	teachCmd.Flags().StringVarP(&teachUser, "user", "u", "global", "user id")
	toneCmd.Flags().StringVarP(&toneUser, "user", "u", "guest", "user id")
	memoryCmd.Flags().StringVarP(&memoryUser, "user", "u", "guest", "user id")
	memoryCmd.Flags().BoolVar(&memoryFull, "full", false, "Include the word and letter graphs")
	memoryCmd.Flags().StringVarP(&memoryFormat, "format", "f", "json", "Output format: json or yaml")
}
