/*
Copyright © 2026 Paulo Suderio
*/
package cmd

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/suderio/delver/internal/assets"
	"github.com/suderio/delver/internal/crawl"
	"github.com/suderio/delver/internal/dungeon"
	"github.com/suderio/delver/internal/rules"

	"github.com/spf13/cobra"
)

// playCmd represents the play command
var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Run a crawl locally in the terminal",
	Long: `Plays a dungeon crawl against local floor data without any chat platform,
with you typing for every party member. Useful for testing generated
dungeons before pointing the bot at them.
Usage at the prompt:
	> all
	> vote anna r`,
	Run: func(cmd *cobra.Command, args []string) {
		dungeonDirs, _ := cmd.Flags().GetStringSlice("dungeon_dir")
		if len(dungeonDirs) == 0 {
			dungeonDirs = configuredDirs("dungeons_dir", "./dungeons")
		}
		floors, _ := cmd.Flags().GetInt("floors")
		names, _ := cmd.Flags().GetStringSlice("players")
		seed, _ := cmd.Flags().GetInt64("seed")
		if seed == 0 {
			seed = time.Now().UnixNano()
		}

		difficultyArg, _ := cmd.Flags().GetString("difficulty")
		difficulty, err := rules.ParseDifficulty(difficultyArg)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		registry, err := rules.NewRegistry(nil)
		if err != nil {
			fmt.Printf("Failed to compile stairs rules: %v\n", err)
			os.Exit(1)
		}

		players := make([]crawl.Player, len(names))
		for i, name := range names {
			players[i] = crawl.Player{ID: crawl.PlayerID(i + 1), Name: name}
		}

		msgr := &localMessenger{}
		crawls := crawl.NewRegistry()
		_, err = crawls.Start(crawl.Config{
			Channel:    playChannel,
			Players:    players,
			Floors:     floors,
			Difficulty: difficulty,
			Source:     dungeon.NewStore(dungeonDirs),
			Messenger:  msgr,
			Assets:     assets.NewLibrary(configuredDirs("assets_dir", "./assets")),
			Rules:      registry,
			Rand:       rand.New(rand.NewSource(seed)),
		})
		if err != nil {
			fmt.Printf("Failed to start the crawl: %v\n", err)
			os.Exit(1)
		}

		if err := RunCrawlTUI(crawls, msgr, players); err != nil {
			fmt.Printf("Fatal TUI Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(playCmd)

	playCmd.Flags().StringSliceP("dungeon_dir", "d", nil, "Directories searched for floor data (overrides dungeons_dir config)")
	playCmd.Flags().IntP("floors", "f", 3, "Number of floors in the crawl")
	playCmd.Flags().StringSliceP("players", "p", []string{"Anna", "Bert"}, "Party member names")
	playCmd.Flags().String("difficulty", "medium", "Stairs placement difficulty (easy, medium, hard)")
	playCmd.Flags().Int64P("seed", "s", 0, "Random seed (0 picks one from the clock)")
}
