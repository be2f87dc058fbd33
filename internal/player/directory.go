package player

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/mahjong-club/internal/identity"
	"github.com/mauv0809/mahjong-club/internal/livequery"
	"github.com/mauv0809/mahjong-club/internal/metrics"
	"github.com/mauv0809/mahjong-club/internal/namecache"
)

// NewDirectory creates the player directory.
func NewDirectory(store Store, names namecache.Cache, broker livequery.Broker, m metrics.Metrics) Directory {
	return &directory{
		store:   store,
		names:   names,
		broker:  broker,
		metrics: m,
	}
}

// PickName returns the trimmed preferred name, else the login id before any "@",
// else DefaultName.
func PickName(preferredName, loginID string) string {
	if name := strings.TrimSpace(preferredName); name != "" {
		return name
	}
	login := strings.TrimSpace(loginID)
	if at := strings.Index(login, "@"); at >= 0 {
		login = login[:at]
	}
	if login != "" {
		return login
	}
	return DefaultName
}

func (d *directory) EnsureProfile(ctx context.Context, userID, preferredName, loginID string) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", ErrEmptyUserID
	}
	existing, err := d.store.FindByUserID(ctx, userID)
	if err == nil {
		return existing.ID, nil
	}
	if !errors.Is(err, ErrNotFound) {
		log.Error("Failed to look up profile", "error", err, "userID", userID)
		return "", err
	}

	p, created, err := d.store.CreateIfAbsent(ctx, userID, PickName(preferredName, loginID))
	if err != nil {
		log.Error("Failed to create profile", "error", err, "userID", userID)
		return "", err
	}
	d.names.Set(ctx, p.ID, p.Name)
	if created {
		log.Info("Created player profile", "playerID", p.ID, "userID", userID, "name", p.Name)
		d.metrics.IncProfilesCreated()
		d.publish(livequery.KindCreated, p)
	}
	return p.ID, nil
}

func (d *directory) FindByUserID(ctx context.Context, userID string) (*Player, error) {
	return d.store.FindByUserID(ctx, userID)
}

func (d *directory) FindByID(ctx context.Context, id string) (*Player, error) {
	return d.store.FindByID(ctx, id)
}

func (d *directory) Rename(ctx context.Context, id, newName string) (*Player, error) {
	name := strings.TrimSpace(newName)
	if name == "" {
		return nil, ErrEmptyName
	}
	p, err := d.store.UpdateName(ctx, id, name)
	if err != nil {
		return nil, err
	}
	d.names.Set(ctx, p.ID, p.Name)
	d.publish(livequery.KindUpdated, p)
	log.Info("Renamed player", "playerID", p.ID, "name", p.Name)
	return p, nil
}

func (d *directory) List(ctx context.Context) ([]Player, error) {
	return d.store.List(ctx)
}

func (d *directory) ResolveName(ctx context.Context, id string) string {
	if name, ok := d.names.Get(ctx, id); ok {
		return name
	}
	p, err := d.store.FindByID(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Warn("Failed to resolve player name", "error", err, "playerID", id)
		}
		return UnknownName
	}
	d.names.Set(ctx, p.ID, p.Name)
	return p.Name
}

func (d *directory) publish(kind livequery.Kind, p *Player) {
	change, err := livequery.NewChange(livequery.TopicPlayers, kind, p.ID, "", p)
	if err != nil {
		log.Error("Failed to build player change", "error", err, "playerID", p.ID)
		return
	}
	d.broker.Publish(change)
}

// Bootstrap ensures a profile exists whenever a user signs in.
func Bootstrap(events identity.Events, dir Directory) {
	events.Listen(func(ctx context.Context, ev identity.Event) {
		if ev.Type != identity.SignedIn {
			return
		}
		if _, err := dir.EnsureProfile(ctx, ev.Identity.ID, ev.Identity.Nickname(), ev.Identity.LoginID()); err != nil {
			log.Error("Failed to bootstrap profile on sign-in", "error", err, "userID", ev.Identity.ID)
		}
	})
}
