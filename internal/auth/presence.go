package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	sl "auth_api/internal/lib/logger"
	"auth_api/internal/models"
	"auth_api/internal/storage"
)

const (
	onlineFlag  = "1"
	offlineFlag = "0"
)

func isOnlineKey(userID int64) string {
	return fmt.Sprintf("user:%d:is_online", userID)
}

func lastLoginKey(userID int64) string {
	return fmt.Sprintf("user:%d:last_login", userID)
}

func offlineSinceKey(userID int64) string {
	return fmt.Sprintf("user:%d:offline_since", userID)
}

func blacklistKey(token string) string {
	return "blacklist:" + token
}

func (a *Auth) markOnline(ctx context.Context, userID int64, at time.Time) error {
	if err := a.store.Set(ctx, isOnlineKey(userID), onlineFlag); err != nil {
		return err
	}

	return a.store.Set(ctx, lastLoginKey(userID), strconv.FormatInt(at.Unix(), 10))
}

func (a *Auth) markOffline(ctx context.Context, userID int64, at time.Time) error {
	if err := a.store.Set(ctx, isOnlineKey(userID), offlineFlag); err != nil {
		return err
	}

	return a.store.Set(ctx, offlineSinceKey(userID), strconv.FormatInt(at.Unix(), 10))
}

// Status reports the presence record of a user. A user that never logged in
// has no record and gets ErrStatusNotFound.
func (a *Auth) Status(ctx context.Context, userID int64) (models.Presence, error) {
	const op = "auth.Status"

	log := a.log.With(
		slog.String("op", op),
		slog.Int64("uid", userID),
	)

	flag, err := a.store.Get(ctx, isOnlineKey(userID))
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return models.Presence{}, ErrStatusNotFound
		}

		log.Error("failed to read presence", sl.Err(err))

		return models.Presence{}, fmt.Errorf("%s: %w", op, err)
	}

	p := models.Presence{
		UserID:   userID,
		IsOnline: flag == onlineFlag,
	}

	p.LastLogin = a.readTimestamp(ctx, log, lastLoginKey(userID))

	if !p.IsOnline {
		p.OfflineSince = a.readTimestamp(ctx, log, offlineSinceKey(userID))
	}

	return p, nil
}

// readTimestamp returns nil for a missing or unreadable value.
func (a *Auth) readTimestamp(ctx context.Context, log *slog.Logger, key string) *time.Time {
	raw, err := a.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, storage.ErrKeyNotFound) {
			log.Warn("failed to read presence timestamp", slog.String("key", key), sl.Err(err))
		}

		return nil
	}

	// older records were written as float seconds
	secs, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Warn("malformed presence timestamp", slog.String("key", key), slog.String("value", raw))

		return nil
	}

	t := time.Unix(int64(secs), 0).UTC()

	return &t
}

// OfflineDuration renders how long ago the user went offline, in whole
// minutes. It is nil for online users and for users without offline_since.
func OfflineDuration(p models.Presence, now time.Time) *string {
	if p.IsOnline || p.OfflineSince == nil {
		return nil
	}

	minutes := int(now.Sub(*p.OfflineSince) / time.Minute)
	if minutes < 0 {
		minutes = 0
	}

	s := fmt.Sprintf("%d minutes ago", minutes)

	return &s
}
