package cache

import (
	"fmt"
	"time"
)

const (
	ConnectionStatusKeyPrefix = "user:%s:threads_status"
	SyncLockKeyPrefix         = "lock:sync:%s"
	InsightsLockKeyPrefix     = "lock:insights:%s"
	UserEventsChannelPrefix   = "user:%s:events"
)

const (
	ConnectionStatusTTL = 5 * time.Minute
	// SyncLockTTL bounds a crashed holder; a full sync is at most a few pages.
	SyncLockTTL     = 2 * time.Minute
	InsightsLockTTL = 2 * time.Minute
)

func ConnectionStatusKey(userID string) string {
	return fmt.Sprintf(ConnectionStatusKeyPrefix, userID)
}

func SyncLockKey(userID string) string {
	return fmt.Sprintf(SyncLockKeyPrefix, userID)
}

func InsightsLockKey(userID string) string {
	return fmt.Sprintf(InsightsLockKeyPrefix, userID)
}

func UserEventsChannel(userID string) string {
	return fmt.Sprintf(UserEventsChannelPrefix, userID)
}
