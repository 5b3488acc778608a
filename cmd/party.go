package cmd

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/suderio/delver/internal/telegram"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	tgChatID      string
	tgUserPairs   []string
	tgRemoveUsers []string
)

// partyCmd represents the party command
var partyCmd = &cobra.Command{
	Use:   "party",
	Short: "Configure the party roster for a Telegram chat",
	Long: `Maintains the list of players a /crawl command recruits in a chat.
Each member is given as name:user_id, for example --user Anna:123456789.`,
	Run: func(cmd *cobra.Command, args []string) {
		if tgChatID == "" {
			fmt.Println("---")
			fmt.Println("How to get your Telegram Chat ID:")
			fmt.Println("1. Add your bot to the group.")
			fmt.Println("2. Send a message in the group (e.g., /start).")
			fmt.Println("3. Access https://api.telegram.org/bot<TOKEN>/getUpdates in your browser.")
			fmt.Println("4. Look for the 'chat' object and its 'id' field (it usually starts with a minus sign).")
			fmt.Println("---")
			fmt.Print("chat_id: ")
			scanner := bufio.NewScanner(os.Stdin)
			if scanner.Scan() {
				tgChatID = strings.TrimSpace(scanner.Text())
			}
		}

		chatID, err := strconv.ParseInt(tgChatID, 10, 64)
		if err != nil {
			fmt.Printf("Error: invalid chat id %q\n", tgChatID)
			os.Exit(1)
		}

		partiesDir := viper.GetString("parties_dir")
		if partiesDir == "" {
			partiesDir = "./parties"
		}
		store := telegram.NewPartyStore(partiesDir)

		config, err := store.Load(chatID)
		if err != nil {
			fmt.Printf("Error loading party roster: %v\n", err)
			os.Exit(1)
		}

		for _, pair := range tgUserPairs {
			parts := strings.Split(pair, ":")
			if len(parts) != 2 {
				fmt.Printf("Warning: invalid user pair format '%s'. Expected 'name:user_id'\n", pair)
				continue
			}
			userID, err := strconv.ParseInt(parts[1], 10, 64)
			if err != nil {
				fmt.Printf("Warning: invalid user id in '%s'\n", pair)
				continue
			}
			config.Users[userID] = parts[0]
		}

		for _, name := range tgRemoveUsers {
			for id, n := range config.Users {
				if n == name {
					delete(config.Users, id)
				}
			}
		}

		if err := store.Save(chatID, config); err != nil {
			fmt.Printf("Error saving party roster: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Party roster for chat %d:\n", chatID)
		ids := make([]int64, 0, len(config.Users))
		for id := range config.Users {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		for _, id := range ids {
			fmt.Printf("  %s (%d)\n", config.Users[id], id)
		}
		if len(ids) == 0 {
			fmt.Println("  (empty)")
		}
	},
}

func init() {
	rootCmd.AddCommand(partyCmd)

	partyCmd.Flags().StringVar(&tgChatID, "chat_id", "", "Telegram chat id the roster belongs to")
	partyCmd.Flags().StringSliceVarP(&tgUserPairs, "user", "u", nil, "Party member as name:user_id (repeatable)")
	partyCmd.Flags().StringSliceVarP(&tgRemoveUsers, "remove", "r", nil, "Member name to remove (repeatable)")
}
