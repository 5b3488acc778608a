/*
Copyright © 2026 Paulo Suderio
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/suderio/delver/internal/assets"
	"github.com/suderio/delver/internal/dungeon"
	"github.com/suderio/delver/internal/rules"
	"github.com/suderio/delver/internal/telegram"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Telegram bot",
	Long: `Connects to the Telegram Bot API and serves dungeon crawls and combat
initiative in every chat the bot has been added to. Requires a token
registered with 'delver bot telegram'.`,
	Run: func(cmd *cobra.Command, args []string) {
		token := viper.GetString("telegram_token")
		if token == "" {
			fmt.Println("Error: no Telegram token configured. Run 'delver bot telegram' first.")
			os.Exit(1)
		}

		dungeonDirs, _ := cmd.Flags().GetStringSlice("dungeon_dir")
		if len(dungeonDirs) == 0 {
			dungeonDirs = configuredDirs("dungeons_dir", "./dungeons")
		}
		assetDirs := configuredDirs("assets_dir", "./assets")
		partiesDir := viper.GetString("parties_dir")
		if partiesDir == "" {
			partiesDir = "./parties"
		}

		overrides := make(map[rules.Difficulty]string)
		for name, expr := range viper.GetStringMapString("stairs_rules") {
			d, err := rules.ParseDifficulty(name)
			if err != nil {
				fmt.Printf("Error in stairs_rules config: %v\n", err)
				os.Exit(1)
			}
			overrides[d] = expr
		}
		registry, err := rules.NewRegistry(overrides)
		if err != nil {
			fmt.Printf("Error compiling stairs rules: %v\n", err)
			os.Exit(1)
		}

		bot := telegram.NewBot(telegram.BotConfig{
			API:     telegram.NewClient(token),
			Floors:  dungeon.NewStore(dungeonDirs),
			Assets:  assets.NewLibrary(assetDirs),
			Rules:   registry,
			Parties: telegram.NewPartyStore(partiesDir),
		})
		bot.Run()
	},
}

// configuredDirs reads a directory list from config, falling back to a
// default relative path.
func configuredDirs(key, fallback string) []string {
	dirs := viper.GetStringSlice(key)
	if len(dirs) == 0 {
		dirs = []string{fallback}
	}
	return dirs
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringSliceP("dungeon_dir", "d", nil, "Directories searched for floor data (overrides dungeons_dir config)")
}
