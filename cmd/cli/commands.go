package main

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mauv0809/mahjong-club/internal/identity"
	"github.com/mauv0809/mahjong-club/internal/ledger"
	"github.com/spf13/cobra"
)

var (
	matchDate   string
	matchType   string
	matchScores []string

	tokenSecret   string
	tokenUserID   string
	tokenNickname string
	tokenEmail    string
	tokenTTL      time.Duration
)

func init() {
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(metricsCmd)
	rootCmd.AddCommand(playersCmd)
	rootCmd.AddCommand(meCmd)
	rootCmd.AddCommand(renameCmd)
	rootCmd.AddCommand(matchesCmd)
	rootCmd.AddCommand(standingsCmd)
	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(pendingCmd)
	rootCmd.AddCommand(reconcileCmd)
	rootCmd.AddCommand(tokenCmd)

	recordCmd.Flags().StringVar(&matchDate, "date", time.Now().Format("2006-01-02"), "Match date (YYYY-MM-DD)")
	recordCmd.Flags().StringVar(&matchType, "type", string(ledger.EastRound), "Game type: east_round or full_match")
	recordCmd.Flags().StringArrayVar(&matchScores, "score", nil, "Final score as playerID=points, once per player")

	tokenCmd.Flags().StringVar(&tokenSecret, "secret", os.Getenv("AUTH_JWT_SECRET"), "Signing secret of the server")
	tokenCmd.Flags().StringVar(&tokenUserID, "user-id", "", "User id of the session")
	tokenCmd.Flags().StringVar(&tokenNickname, "nickname", "", "Nickname attribute")
	tokenCmd.Flags().StringVar(&tokenEmail, "email", "", "E-mail attribute")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "Token lifetime")
	tokenCmd.MarkFlagRequired("user-id")
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the health of the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performGetRequest(cmd.Context(), "/health")
	},
}

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Get application metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performGetRequest(cmd.Context(), "/metrics")
	},
}

var playersCmd = &cobra.Command{
	Use:   "players",
	Short: "List the players of the club",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performGetRequest(cmd.Context(), "/players")
	},
}

var meCmd = &cobra.Command{
	Use:   "me",
	Short: "Show the profile of the signed-in player",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performGetRequest(cmd.Context(), "/players/me")
	},
}

var renameCmd = &cobra.Command{
	Use:   "rename <name>",
	Short: "Change the display name of the signed-in player",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(cmd.Context(), http.MethodPatch, "/players/me", map[string]string{"name": strings.Join(args, " ")})
	},
}

var matchesCmd = &cobra.Command{
	Use:   "matches",
	Short: "List recorded matches with their standings",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performGetRequest(cmd.Context(), "/matches")
	},
}

var standingsCmd = &cobra.Command{
	Use:   "standings <match-id>",
	Short: "Print the standings table of a match",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var ms ledger.MatchStandings
		if err := fetchJSON(cmd.Context(), http.MethodGet, "/matches/"+args[0]+"/standings", nil, &ms); err != nil {
			return err
		}
		printStandings(ms)
		return nil
	},
}

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record the final scores of a match",
	Example: `  mahjong-cli record --type full_match \
    --score p1=40000 --score p2=30000 --score p3=20000 --score p4=10000`,
	RunE: func(cmd *cobra.Command, args []string) error {
		req := ledger.RecordRequest{Date: matchDate, GameType: ledger.GameType(matchType)}
		for _, raw := range matchScores {
			id, points, ok := strings.Cut(raw, "=")
			if !ok {
				return fmt.Errorf("score %q must look like playerID=points", raw)
			}
			score, err := strconv.Atoi(strings.TrimSpace(points))
			if err != nil {
				return fmt.Errorf("score %q: %w", raw, err)
			}
			req.Scores = append(req.Scores, ledger.ScoreInput{PlayerID: strings.TrimSpace(id), Score: score})
		}
		req.PlayerCount = len(req.Scores)
		if err := req.Validate(); err != nil {
			return err
		}

		var res ledger.RecordResult
		if err := fetchJSON(cmd.Context(), http.MethodPost, "/matches", req, &res); err != nil {
			return err
		}
		if res.Status == ledger.StatusPending {
			fmt.Printf("Match queued as pending (%s). It will be retried.\n", res.PendingID)
			return nil
		}
		var ms ledger.MatchStandings
		if err := fetchJSON(cmd.Context(), http.MethodGet, "/matches/"+res.Match.ID+"/standings", nil, &ms); err != nil {
			return err
		}
		printStandings(ms)
		return nil
	},
}

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List match results waiting to be stored",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performGetRequest(cmd.Context(), "/matches/pending")
	},
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Retry pending match results now",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(cmd.Context(), http.MethodPost, "/matches/pending/reconcile", nil)
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a development session token",
	RunE: func(cmd *cobra.Command, args []string) error {
		if tokenSecret == "" {
			return fmt.Errorf("a signing secret is required (--secret or AUTH_JWT_SECRET)")
		}
		attrs := map[string]string{}
		if tokenNickname != "" {
			attrs["custom:nickname"] = tokenNickname
		}
		if tokenEmail != "" {
			attrs["email"] = tokenEmail
		}
		signed, err := identity.NewVerifier(tokenSecret).Issue(identity.Identity{ID: tokenUserID, Attributes: attrs}, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Println(signed)
		return nil
	},
}

func printStandings(ms ledger.MatchStandings) {
	fmt.Printf("Match %s on %s (%s, %d players, stake %d)\n", ms.Match.ID, ms.Match.Date, ms.Match.GameType, ms.Match.PlayerCount, ledger.StartingStake(len(ms.Standings)))
	for i, s := range ms.Standings {
		fmt.Printf("%d. %-20s %7d %+6.1f\n", i+1, s.PlayerName, s.Score, s.Result)
	}
}
