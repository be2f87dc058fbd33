package player

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/mahjong-club/internal/livequery"
	"github.com/mauv0809/mahjong-club/internal/namecache"
)

// SyncNames keeps names current with player changes relayed from other
// instances. Close the returned subscription to stop it.
func SyncNames(broker livequery.Broker, names namecache.Cache) *livequery.Subscription {
	origin := broker.Origin()
	sub := broker.Subscribe(livequery.TopicPlayers, func(c livequery.Change) bool {
		return c.Origin != origin
	})
	go func() {
		ctx := context.Background()
		for change := range sub.C {
			if change.Kind == livequery.KindDeleted {
				names.Delete(ctx, change.Key)
				continue
			}
			var p Player
			if err := change.Decode(&p); err != nil {
				log.Warn("Dropping cached name after undecodable change", "error", err, "playerID", change.Key)
				names.Delete(ctx, change.Key)
				continue
			}
			names.Set(ctx, p.ID, p.Name)
			log.Debug("Synced player name", "playerID", p.ID, "origin", change.Origin)
		}
	}()
	return sub
}
