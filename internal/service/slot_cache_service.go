package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"clinic-frontdesk/internal/domain/entity"
	"clinic-frontdesk/internal/domain/repository"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// markOccupiedScript writes the occupant only into dates whose sync marker
// is still alive. An unsynced hash holding a single entry would otherwise
// report every other time of that day as free.
//
// KEYS[1] = occupancy hash, KEYS[2] = sync marker, ARGV[1] = slot time,
// ARGV[2] = slot id, ARGV[3] = TTL in seconds.
var markOccupiedScript = redis.NewScript(`
	if redis.call('EXISTS', KEYS[2]) == 0 then
		return 0
	end
	redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
	redis.call('EXPIRE', KEYS[1], ARGV[3])
	return 1
`)

// releaseScript removes the occupant only if it is still the given slot, so a
// late release cannot evict a newer booking of the same time.
var releaseScript = redis.NewScript(`
	if redis.call('HGET', KEYS[1], ARGV[1]) == ARGV[2] then
		return redis.call('HDEL', KEYS[1], ARGV[1])
	end
	return 0
`)

const (
	RedisSlotKeyPrefix   = "slot:occupied:"
	RedisSyncedKeyPrefix = "slot:synced:"

	// A date's hash is trusted only while its sync marker lives. A booking
	// committed between the database read and the rewrite of a warm is lost
	// from the hash, so the marker bounds how long such a gap is served.
	syncFreshness = 60 * time.Second

	syncBatchSize = 500
)

// SlotCacheService mirrors active slot occupancy into Redis, one hash per
// date. It is advisory: the database constraint remains the only arbiter of
// who holds a slot, and every method tolerates a nil receiver.
type SlotCacheService struct {
	slotRepo    repository.SlotRepository
	redisClient *redis.Client
	log         *logrus.Logger
	location    *time.Location
	now         func() time.Time
	syncTTL     time.Duration
	batchSize   int
}

// NewSlotCacheService builds the cache. location is the clinic's time zone;
// it decides which calendar day counts as today during sync.
func NewSlotCacheService(slotRepo repository.SlotRepository, redisClient *redis.Client, location *time.Location, log *logrus.Logger) *SlotCacheService {
	if location == nil {
		location = time.UTC
	}
	return &SlotCacheService{
		slotRepo:    slotRepo,
		redisClient: redisClient,
		log:         log,
		location:    location,
		now:         time.Now,
		syncTTL:     syncFreshness,
		batchSize:   syncBatchSize,
	}
}

// Lookup reports whether the slot is occupied. known is false when the date
// has not been synced and the caller must ask the database.
func (s *SlotCacheService) Lookup(ctx context.Context, date time.Time, slotTime string) (occupied bool, known bool, err error) {
	if s == nil || s.redisClient == nil {
		return false, false, nil
	}

	pipe := s.redisClient.Pipeline()
	synced := pipe.Exists(ctx, syncedKey(date))
	holder := pipe.HExists(ctx, slotKey(date), slotTime)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, false, fmt.Errorf("redis lookup for %s %s: %w", date.Format(entity.SlotDateLayout), slotTime, err)
	}
	if synced.Val() == 0 {
		return false, false, nil
	}
	return holder.Val(), true, nil
}

// MarkOccupied records a freshly reserved slot.
func (s *SlotCacheService) MarkOccupied(ctx context.Context, slot *entity.AppointmentSlot) error {
	if s == nil || s.redisClient == nil {
		return nil
	}

	ttl := s.calculateTTL(slot.SlotDate)
	_, err := markOccupiedScript.Run(ctx, s.redisClient,
		[]string{slotKey(slot.SlotDate), syncedKey(slot.SlotDate)},
		slot.SlotTime, slot.ID.String(), int64(ttl/time.Second),
	).Int()
	if err != nil {
		s.log.Warnf("Failed to mark slot %s %s occupied: %+v", slot.DateKey(), slot.SlotTime, err)
		return fmt.Errorf("mark occupied %s %s: %w", slot.DateKey(), slot.SlotTime, err)
	}

	s.log.Debugf("Marked slot %s %s occupied by %s", slot.DateKey(), slot.SlotTime, slot.ID)
	return nil
}

// Release clears a cancelled slot.
func (s *SlotCacheService) Release(ctx context.Context, slot *entity.AppointmentSlot) error {
	if s == nil || s.redisClient == nil {
		return nil
	}

	_, err := releaseScript.Run(ctx, s.redisClient,
		[]string{slotKey(slot.SlotDate)},
		slot.SlotTime, slot.ID.String(),
	).Int()
	if err != nil {
		s.log.Warnf("Failed to release slot %s %s: %+v", slot.DateKey(), slot.SlotTime, err)
		return fmt.Errorf("release %s %s: %w", slot.DateKey(), slot.SlotTime, err)
	}

	s.log.Debugf("Released slot %s %s", slot.DateKey(), slot.SlotTime)
	return nil
}

// WarmDate replaces the cached occupancy for date with slots and marks the
// date as synced for syncTTL. slots must be every active slot of that date.
func (s *SlotCacheService) WarmDate(ctx context.Context, date time.Time, slots []entity.AppointmentSlot) error {
	if s == nil || s.redisClient == nil {
		return nil
	}

	key := slotKey(date)
	pipe := s.redisClient.TxPipeline()
	pipe.Del(ctx, key)
	for _, slot := range slots {
		if slot.IsActive() {
			pipe.HSet(ctx, key, slot.SlotTime, slot.ID.String())
		}
	}
	pipe.Expire(ctx, key, s.calculateTTL(date))
	pipe.Set(ctx, syncedKey(date), 1, s.ttlForMarker())

	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Warnf("Failed to warm slot cache for %s: %+v", date.Format(entity.SlotDateLayout), err)
		return fmt.Errorf("warm slot cache for %s: %w", date.Format(entity.SlotDateLayout), err)
	}
	return nil
}

// SyncOnStartup rebuilds the occupancy hashes of every date from today on.
// Dates without any active slot are left unsynced and warm on first lookup.
//
// Slots are read in batches ordered by date; a new pipeline is executed per
// batch, and a date's hash is cleared the first time the date is seen.
func (s *SlotCacheService) SyncOnStartup(ctx context.Context) error {
	if s == nil || s.redisClient == nil {
		return errors.New("slot cache is disabled")
	}

	s.log.Info("Starting slot cache sync from database...")
	startTime := s.now()

	if err := s.redisClient.Ping(ctx).Err(); err != nil {
		s.log.Warnf("Redis is not available, skipping sync: %+v", err)
		return fmt.Errorf("redis ping failed: %w", err)
	}

	today := s.today()
	offset := 0
	totalSynced := 0
	seen := make(map[string]time.Time)

	for {
		slots, err := s.slotRepo.ListActiveFrom(ctx, today, s.batch(), offset)
		if err != nil {
			s.log.Errorf("Failed to query slots at offset %d: %+v", offset, err)
			return fmt.Errorf("query slots at offset %d: %w", offset, err)
		}

		if len(slots) == 0 {
			if offset == 0 {
				s.log.Info("No active slots found for sync")
			}
			break
		}

		s.log.Infof("Processing batch: offset=%d, count=%d", offset, len(slots))

		pipe := s.redisClient.TxPipeline()
		for _, slot := range slots {
			key := slotKey(slot.SlotDate)
			if _, ok := seen[key]; !ok {
				seen[key] = slot.SlotDate
				pipe.Del(ctx, key)
			}
			pipe.HSet(ctx, key, slot.SlotTime, slot.ID.String())
			pipe.Expire(ctx, key, s.calculateTTL(slot.SlotDate))
		}

		if _, err := pipe.Exec(ctx); err != nil {
			s.log.Errorf("Failed to execute pipeline for batch at offset %d: %+v", offset, err)
			return fmt.Errorf("pipeline exec at offset %d: %w", offset, err)
		}

		totalSynced += len(slots)

		if len(slots) < s.batch() {
			break
		}
		offset += s.batch()

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}

	if len(seen) > 0 {
		pipe := s.redisClient.TxPipeline()
		for _, date := range seen {
			pipe.Set(ctx, syncedKey(date), 1, s.ttlForMarker())
		}
		if _, err := pipe.Exec(ctx); err != nil {
			s.log.Errorf("Failed to mark synced dates: %+v", err)
			return fmt.Errorf("mark synced dates: %w", err)
		}
	}

	s.log.Infof("Slot cache sync completed: %d slots over %d dates in %v", totalSynced, len(seen), time.Since(startTime))
	return nil
}

// calculateTTL returns TTL: 24 hours after the slot date
func (s *SlotCacheService) calculateTTL(date time.Time) time.Duration {
	expireAt := date.AddDate(0, 0, 1)
	ttl := expireAt.Sub(s.now())

	if ttl <= 0 {
		// Past date - short TTL for cleanup
		return 1 * time.Minute
	}
	return ttl
}

// today is the clinic-local calendar day as a UTC midnight, matching how slot
// dates are parsed.
func (s *SlotCacheService) today() time.Time {
	loc := s.location
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := s.now().In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (s *SlotCacheService) ttlForMarker() time.Duration {
	if s.syncTTL <= 0 {
		return syncFreshness
	}
	return s.syncTTL
}

func (s *SlotCacheService) batch() int {
	if s.batchSize <= 0 {
		return syncBatchSize
	}
	return s.batchSize
}

func slotKey(date time.Time) string {
	return RedisSlotKeyPrefix + date.Format(entity.SlotDateLayout)
}

func syncedKey(date time.Time) string {
	return RedisSyncedKeyPrefix + date.Format(entity.SlotDateLayout)
}
