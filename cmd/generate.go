package cmd

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/suderio/delver/internal/dungeon"
	"github.com/suderio/delver/internal/floorgen"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

// generateCmd represents the generate command
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate starburst floor layouts",
	Long: `Writes <out>/<floor>/rooms.json for each floor, ready to be served by
'delver run'. Pass --seed to reproduce a dungeon exactly.`,
	Run: func(cmd *cobra.Command, args []string) {
		floors, _ := cmd.Flags().GetInt("floors")
		out, _ := cmd.Flags().GetString("out")
		seed, _ := cmd.Flags().GetInt64("seed")
		if seed == 0 {
			seed = time.Now().UnixNano()
		}

		opts := floorgen.DefaultOptions()
		if v, _ := cmd.Flags().GetInt("branches"); v != 0 {
			opts.BranchesPerSide = v
		}
		if v, _ := cmd.Flags().GetInt("branch_length"); v != 0 {
			opts.MaxBranchLen = v
		}
		if v, _ := cmd.Flags().GetInt("landable"); v != 0 {
			opts.LandableChance = v
		}

		fmt.Printf("Generating %d floors to %s (seed %d)\n", floors, out, seed)

		bar := progressbar.Default(int64(floors), "Generating floors")
		for floor := 1; floor <= floors; floor++ {
			rng := rand.New(rand.NewSource(seed + int64(floor)))
			g, err := floorgen.Generate(rng, opts)
			if err != nil {
				fmt.Printf("\nError generating floor %d: %v\n", floor, err)
				os.Exit(1)
			}
			path := filepath.Join(out, strconv.Itoa(floor), "rooms.json")
			if err := dungeon.WriteFile(g, path); err != nil {
				fmt.Printf("\nError writing floor %d: %v\n", floor, err)
				os.Exit(1)
			}
			bar.Add(1)
		}

		fmt.Printf("Done. Serve them with: delver run --dungeon_dir %s\n", out)
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().IntP("floors", "f", 3, "Number of floors to generate")
	generateCmd.Flags().StringP("out", "o", "./dungeons", "Output directory")
	generateCmd.Flags().Int64P("seed", "s", 0, "Random seed (0 picks one from the clock)")
	generateCmd.Flags().Int("branches", 0, "Branches per spine side (odd, default 3)")
	generateCmd.Flags().Int("branch_length", 0, "Maximum branch length (default 2)")
	generateCmd.Flags().Int("landable", 0, "Percent chance a corridor room is landable (default 20)")
}
