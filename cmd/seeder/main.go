package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/mauv0809/mahjong-club/internal/chat"
	"github.com/mauv0809/mahjong-club/internal/database"
	"github.com/mauv0809/mahjong-club/internal/ledger"
	"github.com/mauv0809/mahjong-club/internal/livequery"
	"github.com/mauv0809/mahjong-club/internal/metrics"
	"github.com/mauv0809/mahjong-club/internal/namecache"
	"github.com/mauv0809/mahjong-club/internal/player"
)

// Simplified config loading for the script
func loadConfig() map[string]string {
	err := godotenv.Load()
	if err != nil {
		log.Warn("No .env file found, reading from environment variables")
	}

	config := map[string]string{
		"DB_NAME":           "mahjong.db",
		"MIGRATIONS_DIR":    "./migrations",
		"TURSO_PRIMARY_URL": "",
		"TURSO_AUTH_TOKEN":  "",
	}
	for key := range config {
		if value, ok := os.LookupEnv(key); ok {
			config[key] = value
		}
	}
	return config
}

func main() {
	log.Info("Starting database seeder...")
	cfg := loadConfig()
	ctx := context.Background()

	db, teardown, err := database.InitDB(cfg["DB_NAME"], cfg["TURSO_PRIMARY_URL"], cfg["TURSO_AUTH_TOKEN"], cfg["MIGRATIONS_DIR"])
	if err != nil {
		log.Fatalf("Failed to open database: %s", err)
	}
	defer teardown()
	log.Info("Successfully connected to the database.")

	m := metrics.NewMock()
	broker := livequery.New(m, 0)
	names := namecache.NewMemory(time.Minute)
	defer names.Close()
	players := player.NewDirectory(player.NewStore(db), names, broker, m)

	// Create 4 dummy players to use in matches
	seedNames := []string{"Seeder East", "Seeder South", "Seeder West", "Seeder North"}
	playerIDs := make([]string, 0, len(seedNames))
	for i, name := range seedNames {
		id, err := players.EnsureProfile(ctx, fmt.Sprintf("seed-user-%d", i+1), name, "")
		if err != nil {
			log.Fatalf("Failed to ensure dummy player %s: %s", name, err)
		}
		playerIDs = append(playerIDs, id)
	}
	log.Info("Ensured dummy players exist.")

	const batchSize = 100 // Insert 100 matches at a time
	const numMatches = 1000

	log.Info("Preparing to insert dummy matches...", "total", numMatches, "batch_size", batchSize)
	startTime := time.Now()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		log.Fatalf("Failed to begin transaction: %s", err)
	}

	var matchValues, scoreValues []string
	var matchArgs, scoreArgs []any

	for i := 0; i < numMatches; i++ {
		matchTime := time.Now().Add(-time.Duration(rand.Intn(365*24)) * time.Hour)
		count := 3 + rand.Intn(2)
		gameType := ledger.EastRound
		if rand.Intn(2) == 0 {
			gameType = ledger.FullMatch
		}
		matchID := uuid.NewString()
		matchValues = append(matchValues, "(?, ?, ?, ?, ?)")
		matchArgs = append(matchArgs, matchID, matchTime.Format("2006-01-02"), count, string(gameType), matchTime.UnixMilli())

		seats := rand.Perm(len(playerIDs))[:count]
		for j, score := range randomScores(count) {
			scoreValues = append(scoreValues, "(?, ?, ?, ?, ?)")
			scoreArgs = append(scoreArgs, uuid.NewString(), matchID, playerIDs[seats[j]], score, matchTime.UnixMilli())
		}

		if (i+1)%batchSize == 0 || (i+1) == numMatches {
			if _, err := tx.ExecContext(ctx, "INSERT INTO matches (id, date, player_count, game_type, created_at) VALUES "+strings.Join(matchValues, ","), matchArgs...); err != nil {
				tx.Rollback()
				log.Fatalf("Failed to execute match batch insert: %s", err)
			}
			if _, err := tx.ExecContext(ctx, "INSERT INTO match_scores (id, match_id, player_id, score, created_at) VALUES "+strings.Join(scoreValues, ","), scoreArgs...); err != nil {
				tx.Rollback()
				log.Fatalf("Failed to execute score batch insert: %s", err)
			}

			// Reset for the next batch
			matchValues, scoreValues = nil, nil
			matchArgs, scoreArgs = nil, nil
			log.Info("Inserted batch", "completed", i+1, "total", numMatches)
		}
	}

	if err := tx.Commit(); err != nil {
		log.Fatalf("Failed to commit transaction: %s", err)
	}
	log.Info("Successfully inserted all dummy matches.", "duration", time.Since(startTime))

	seedChat(ctx, chat.NewService(chat.NewStore(db), players, broker, m), playerIDs)
}

// randomScores returns final scores in steps of 100 that add up to the
// starting total for the table size.
func randomScores(count int) []int {
	stake := ledger.StartingStake(count)
	total := stake * count
	scores := make([]int, count)
	remaining := total
	for i := 0; i < count-1; i++ {
		swing := (rand.Intn(401) - 200) * 100
		scores[i] = stake + swing
		remaining -= scores[i]
	}
	scores[count-1] = remaining
	return scores
}

func seedChat(ctx context.Context, svc chat.Service, playerIDs []string) {
	lines := []string{
		"Who is in for a full match on Friday?",
		"Bring the new tiles please",
		"Scores from yesterday are in",
	}
	for i, line := range lines {
		author := playerIDs[i%len(playerIDs)]
		msg, err := svc.SendMessage(ctx, author, line)
		if err != nil {
			log.Fatalf("Failed to seed message: %s", err)
		}
		for j, other := range playerIDs {
			if other == author {
				continue
			}
			if j%2 == 0 {
				if _, err := svc.SendReply(ctx, other, msg.ID, "Count me in"); err != nil {
					log.Fatalf("Failed to seed reply: %s", err)
				}
			}
			if _, err := svc.ToggleLike(ctx, chat.MessageTarget(msg.ID), other); err != nil {
				log.Fatalf("Failed to seed like: %s", err)
			}
		}
	}
	log.Info("Seeded chat", "messages", len(lines))
}
