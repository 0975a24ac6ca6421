package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var _ Store = (*RedisStore)(nil)

// RedisStore keeps every entity as a JSON string under "{kind}:{id}" and a
// sorted set per collection scored by epoch milliseconds.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects using a redis:// URL. The connection is not
// verified; call Ping.
func NewRedisStore(url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	opts.PoolSize = 10
	opts.MinIdleConns = 2

	return NewRedisStoreFromClient(redis.NewClient(opts)), nil
}

func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// ClearAllData flushes the selected database. Test tooling only.
func (s *RedisStore) ClearAllData(ctx context.Context) error {
	if err := s.client.FlushDB(ctx).Err(); err != nil {
		return fmt.Errorf("failed to flush database: %w", err)
	}
	return nil
}

const (
	editorKeyPrefix = "editor:"

	reportersIndex     = "reporters"
	editionsIndex      = "editions"
	dailyEditionsIndex = "daily_editions"
	eventsIndex        = "events"
	adsIndex           = "ads"
	usersIndex         = "users"
)

func reporterKey(id string) string           { return "reporter:" + id }
func articleKey(id string) string            { return "article:" + id }
func reporterArticlesIndex(id string) string { return "articles:" + id }
func editionKey(id string) string            { return "edition:" + id }
func dailyEditionKey(id string) string       { return "daily_edition:" + id }
func eventKey(id string) string              { return "event:" + id }
func adKey(id string) string                 { return "ad:" + id }
func userKey(id string) string               { return "user:" + id }
func userEmailKey(email string) string       { return "user_email:" + strings.ToLower(email) }

func jobRunningKey(name string) string     { return "job:" + name + ":running" }
func jobLastRunKey(name string) string     { return "job:" + name + ":lastRun" }
func jobLastSuccessKey(name string) string { return "job:" + name + ":lastSuccess" }

func editorLastGenerationKey(kind GenerationKind) string {
	return editorKeyPrefix + "last" + string(kind) + "GenerationTime"
}

func editorPeriodKey(kind GenerationKind) string {
	return editorKeyPrefix + strings.ToLower(string(kind)) + "GenerationPeriodMinutes"
}

// Editor

func (s *RedisStore) GetEditor(ctx context.Context) (*Editor, error) {
	keys := []string{
		editorKeyPrefix + "bio",
		editorKeyPrefix + "prompt",
		editorKeyPrefix + "modelName",
		editorKeyPrefix + "messageSliceCount",
	}
	for _, kind := range GenerationKinds {
		keys = append(keys, editorPeriodKey(kind), editorLastGenerationKey(kind))
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get editor: %w", err)
	}

	str := func(i int) string {
		if v, ok := values[i].(string); ok {
			return v
		}
		return ""
	}

	editor := &Editor{
		Bio:               str(0),
		Prompt:            str(1),
		ModelName:         str(2),
		MessageSliceCount: atoiOrZero(str(3)),
	}
	for i, kind := range GenerationKinds {
		period := atoiOrZero(str(4 + 2*i))
		switch kind {
		case GenerationArticle:
			editor.ArticleGenerationPeriodMinutes = period
		case GenerationEvent:
			editor.EventGenerationPeriodMinutes = period
		case GenerationEdition:
			editor.EditionGenerationPeriodMinutes = period
		case GenerationDaily:
			editor.DailyGenerationPeriodMinutes = period
		}
		if t := parseMillis(str(5 + 2*i)); t != nil {
			editor.SetLastGeneration(kind, *t)
		}
	}
	editor.ApplyDefaults()

	return editor, nil
}

// SaveEditor writes the configurable fields. Last generation times are owned
// by SetLastGeneration and left untouched.
func (s *RedisStore) SaveEditor(ctx context.Context, editor *Editor) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, editorKeyPrefix+"bio", editor.Bio, 0)
		pipe.Set(ctx, editorKeyPrefix+"prompt", editor.Prompt, 0)
		pipe.Set(ctx, editorKeyPrefix+"modelName", editor.ModelName, 0)
		pipe.Set(ctx, editorKeyPrefix+"messageSliceCount", editor.MessageSliceCount, 0)
		for _, kind := range GenerationKinds {
			pipe.Set(ctx, editorPeriodKey(kind), editor.Period(kind), 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save editor: %w", err)
	}
	return nil
}

func (s *RedisStore) SetLastGeneration(ctx context.Context, kind GenerationKind, t time.Time) error {
	if err := s.client.Set(ctx, editorLastGenerationKey(kind), t.UnixMilli(), 0).Err(); err != nil {
		return fmt.Errorf("failed to set last %s generation time: %w", kind, err)
	}
	return nil
}

// Reporters

func (s *RedisStore) ListReporters(ctx context.Context) ([]Reporter, error) {
	ids, err := s.client.ZRange(ctx, reportersIndex, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list reporters: %w", err)
	}
	return mgetJSON[Reporter](ctx, s.client, prefixed(ids, reporterKey))
}

func (s *RedisStore) GetReporter(ctx context.Context, id string) (*Reporter, error) {
	var reporter Reporter
	if err := s.getJSON(ctx, reporterKey(id), &reporter); err != nil {
		return nil, err
	}
	return &reporter, nil
}

func (s *RedisStore) SaveReporter(ctx context.Context, reporter *Reporter) error {
	return s.saveIndexed(ctx, reporterKey(reporter.ID), reporter, reportersIndex, reporter.CreatedAt, reporter.ID)
}

// DeleteReporter does not cascade; the reporter's articles stay in place.
func (s *RedisStore) DeleteReporter(ctx context.Context, id string) error {
	return s.deleteIndexed(ctx, reporterKey(id), reportersIndex, id)
}

// Articles

func (s *RedisStore) SaveArticle(ctx context.Context, article *Article) error {
	return s.saveIndexed(ctx, articleKey(article.ID), article,
		reporterArticlesIndex(article.ReporterID), article.GenerationTime, article.ID)
}

func (s *RedisStore) GetArticle(ctx context.Context, id string) (*Article, error) {
	var article Article
	if err := s.getJSON(ctx, articleKey(id), &article); err != nil {
		return nil, err
	}
	return &article, nil
}

// GetArticles returns the articles that exist, in the order requested.
func (s *RedisStore) GetArticles(ctx context.Context, ids []string) ([]Article, error) {
	return mgetJSON[Article](ctx, s.client, prefixed(ids, articleKey))
}

func (s *RedisStore) RecentArticles(ctx context.Context, reporterID string, limit int) ([]Article, error) {
	ids, err := s.recentIDs(ctx, reporterArticlesIndex(reporterID), limit)
	if err != nil {
		return nil, err
	}
	return s.GetArticles(ctx, ids)
}

func (s *RedisStore) ArticlesInRange(ctx context.Context, reporterID string, start, end time.Time) ([]Article, error) {
	ids, err := s.idsInRange(ctx, reporterArticlesIndex(reporterID), start, end)
	if err != nil {
		return nil, err
	}
	return s.GetArticles(ctx, ids)
}

// Editions

func (s *RedisStore) SaveEdition(ctx context.Context, edition *NewspaperEdition) error {
	return s.saveIndexed(ctx, editionKey(edition.ID), edition, editionsIndex, edition.GenerationTime, edition.ID)
}

func (s *RedisStore) GetEdition(ctx context.Context, id string) (*NewspaperEdition, error) {
	var edition NewspaperEdition
	if err := s.getJSON(ctx, editionKey(id), &edition); err != nil {
		return nil, err
	}
	return &edition, nil
}

func (s *RedisStore) RecentEditions(ctx context.Context, limit int) ([]NewspaperEdition, error) {
	ids, err := s.recentIDs(ctx, editionsIndex, limit)
	if err != nil {
		return nil, err
	}
	return mgetJSON[NewspaperEdition](ctx, s.client, prefixed(ids, editionKey))
}

func (s *RedisStore) EditionsInRange(ctx context.Context, start, end time.Time) ([]NewspaperEdition, error) {
	ids, err := s.idsInRange(ctx, editionsIndex, start, end)
	if err != nil {
		return nil, err
	}
	return mgetJSON[NewspaperEdition](ctx, s.client, prefixed(ids, editionKey))
}

func (s *RedisStore) SaveDailyEdition(ctx context.Context, edition *DailyEdition) error {
	return s.saveIndexed(ctx, dailyEditionKey(edition.ID), edition, dailyEditionsIndex, edition.GenerationTime, edition.ID)
}

func (s *RedisStore) GetDailyEdition(ctx context.Context, id string) (*DailyEdition, error) {
	var edition DailyEdition
	if err := s.getJSON(ctx, dailyEditionKey(id), &edition); err != nil {
		return nil, err
	}
	return &edition, nil
}

func (s *RedisStore) RecentDailyEditions(ctx context.Context, limit int) ([]DailyEdition, error) {
	ids, err := s.recentIDs(ctx, dailyEditionsIndex, limit)
	if err != nil {
		return nil, err
	}
	return mgetJSON[DailyEdition](ctx, s.client, prefixed(ids, dailyEditionKey))
}

// Events

func (s *RedisStore) SaveEvent(ctx context.Context, event *Event) error {
	return s.saveIndexed(ctx, eventKey(event.ID), event, eventsIndex, event.GenerationTime, event.ID)
}

func (s *RedisStore) RecentEvents(ctx context.Context, limit int) ([]Event, error) {
	ids, err := s.recentIDs(ctx, eventsIndex, limit)
	if err != nil {
		return nil, err
	}
	return mgetJSON[Event](ctx, s.client, prefixed(ids, eventKey))
}

func (s *RedisStore) EventsInRange(ctx context.Context, start, end time.Time) ([]Event, error) {
	ids, err := s.idsInRange(ctx, eventsIndex, start, end)
	if err != nil {
		return nil, err
	}
	return mgetJSON[Event](ctx, s.client, prefixed(ids, eventKey))
}

// Ads

func (s *RedisStore) ListAds(ctx context.Context) ([]AdEntry, error) {
	ids, err := s.recentIDs(ctx, adsIndex, 0)
	if err != nil {
		return nil, err
	}
	return mgetJSON[AdEntry](ctx, s.client, prefixed(ids, adKey))
}

func (s *RedisStore) GetAd(ctx context.Context, id string) (*AdEntry, error) {
	var ad AdEntry
	if err := s.getJSON(ctx, adKey(id), &ad); err != nil {
		return nil, err
	}
	return &ad, nil
}

func (s *RedisStore) SaveAd(ctx context.Context, ad *AdEntry) error {
	return s.saveIndexed(ctx, adKey(ad.ID), ad, adsIndex, ad.CreatedAt, ad.ID)
}

func (s *RedisStore) DeleteAd(ctx context.Context, id string) error {
	return s.deleteIndexed(ctx, adKey(id), adsIndex, id)
}

// MostRecentAd relies on ZREVRANGE ordering members with equal scores in
// reverse lexicographic order, which is id descending.
func (s *RedisStore) MostRecentAd(ctx context.Context) (*AdEntry, error) {
	ids, err := s.recentIDs(ctx, adsIndex, 1)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, ErrNotFound
	}
	return s.GetAd(ctx, ids[0])
}

// Users

type userRecord struct {
	User
	PasswordHash string `json:"passwordHash"`
}

func (s *RedisStore) ListUsers(ctx context.Context) ([]User, error) {
	ids, err := s.client.ZRange(ctx, usersIndex, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	records, err := mgetJSON[userRecord](ctx, s.client, prefixed(ids, userKey))
	if err != nil {
		return nil, err
	}
	users := make([]User, 0, len(records))
	for _, record := range records {
		users = append(users, record.toUser())
	}
	return users, nil
}

func (s *RedisStore) GetUser(ctx context.Context, id string) (*User, error) {
	var record userRecord
	if err := s.getJSON(ctx, userKey(id), &record); err != nil {
		return nil, err
	}
	user := record.toUser()
	return &user, nil
}

func (s *RedisStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	id, err := s.client.Get(ctx, userEmailKey(email)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user email: %w", err)
	}
	return s.GetUser(ctx, id)
}

func (s *RedisStore) SaveUser(ctx context.Context, user *User) error {
	data, err := json.Marshal(userRecord{User: *user, PasswordHash: user.PasswordHash})
	if err != nil {
		return fmt.Errorf("failed to encode user %s: %w", user.ID, err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, userKey(user.ID), data, 0)
		pipe.Set(ctx, userEmailKey(user.Email), user.ID, 0)
		pipe.ZAdd(ctx, usersIndex, redis.Z{Score: float64(user.CreatedAt.UnixMilli()), Member: user.ID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save user %s: %w", user.ID, err)
	}
	return nil
}

// maxCreateAttempts bounds retries when a concurrent registration touches
// the watched keys. Every retry means another registration went through.
const maxCreateAttempts = 10

func (s *RedisStore) CreateUser(ctx context.Context, user *User, firstRole Role) error {
	emailKey := userEmailKey(user.Email)
	role := user.Role

	create := func(tx *redis.Tx) error {
		taken, err := tx.Exists(ctx, emailKey).Result()
		if err != nil {
			return err
		}
		if taken > 0 {
			return fmt.Errorf("email %s: %w", user.Email, ErrConflict)
		}

		count, err := tx.ZCard(ctx, usersIndex).Result()
		if err != nil {
			return err
		}
		user.Role = role
		if count == 0 {
			user.Role = firstRole
		}

		data, err := json.Marshal(userRecord{User: *user, PasswordHash: user.PasswordHash})
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, userKey(user.ID), data, 0)
			pipe.Set(ctx, emailKey, user.ID, 0)
			pipe.ZAdd(ctx, usersIndex, redis.Z{Score: float64(user.CreatedAt.UnixMilli()), Member: user.ID})
			return nil
		})
		return err
	}

	var err error
	for range maxCreateAttempts {
		err = s.client.Watch(ctx, create, emailKey, usersIndex)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("failed to create user %s: %w", user.ID, err)
	}
	return nil
}

func (r userRecord) toUser() User {
	user := r.User
	user.PasswordHash = r.PasswordHash
	return user
}

// Jobs

func (s *RedisStore) GetJobStatus(ctx context.Context, name string) (*JobStatus, error) {
	values, err := s.client.MGet(ctx, jobRunningKey(name), jobLastRunKey(name), jobLastSuccessKey(name)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get job status %s: %w", name, err)
	}

	status := &JobStatus{Name: name}
	if v, ok := values[0].(string); ok {
		status.Running = v == "true"
	}
	if v, ok := values[1].(string); ok {
		status.LastRun = parseMillis(v)
	}
	if v, ok := values[2].(string); ok {
		status.LastSuccess = parseMillis(v)
	}
	return status, nil
}

func (s *RedisStore) ClaimJob(ctx context.Context, name string, now time.Time, lease time.Duration) (bool, error) {
	runningKey := jobRunningKey(name)
	lastRunKey := jobLastRunKey(name)
	claimed := false

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		values, err := tx.MGet(ctx, runningKey, lastRunKey).Result()
		if err != nil {
			return err
		}
		if running, _ := values[0].(string); running == "true" {
			var lastRun *time.Time
			if v, ok := values[1].(string); ok {
				lastRun = parseMillis(v)
			}
			if !leaseExpired(lastRun, now, lease) {
				return nil
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, runningKey, "true", 0)
			pipe.Set(ctx, lastRunKey, now.UnixMilli(), 0)
			return nil
		})
		if err == nil {
			claimed = true
		}
		return err
	}, runningKey, lastRunKey)

	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to claim job %s: %w", name, err)
	}
	return claimed, nil
}

func (s *RedisStore) FinishJob(ctx context.Context, name string, success bool, now time.Time) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, jobRunningKey(name), "false", 0)
		if success {
			pipe.Set(ctx, jobLastSuccessKey(name), now.UnixMilli(), 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to finish job %s: %w", name, err)
	}
	return nil
}

// helpers

func (s *RedisStore) getJSON(ctx context.Context, key string, dst any) error {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to get key %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("failed to decode key %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) saveIndexed(ctx context.Context, key string, value any, index string, at time.Time, member string) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, data, 0)
		pipe.ZAdd(ctx, index, redis.Z{Score: float64(at.UnixMilli()), Member: member})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) deleteIndexed(ctx context.Context, key string, index string, member string) error {
	var del *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, key)
		pipe.ZRem(ctx, index, member)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	if del.Val() == 0 {
		return ErrNotFound
	}
	return nil
}

// recentIDs returns up to limit members, newest first. limit <= 0 means all.
func (s *RedisStore) recentIDs(ctx context.Context, index string, limit int) ([]string, error) {
	stop := int64(limit) - 1
	if limit <= 0 {
		stop = -1
	}
	ids, err := s.client.ZRevRange(ctx, index, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read index %s: %w", index, err)
	}
	return ids, nil
}

// idsInRange returns members scored within [start, end], oldest first.
func (s *RedisStore) idsInRange(ctx context.Context, index string, start, end time.Time) ([]string, error) {
	ids, err := s.client.ZRangeByScore(ctx, index, &redis.ZRangeBy{
		Min: strconv.FormatInt(start.UnixMilli(), 10),
		Max: strconv.FormatInt(end.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read index %s: %w", index, err)
	}
	return ids, nil
}

func mgetJSON[T any](ctx context.Context, client *redis.Client, keys []string) ([]T, error) {
	items := make([]T, 0, len(keys))
	if len(keys) == 0 {
		return items, nil
	}

	values, err := client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get %d keys: %w", len(keys), err)
	}

	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			continue
		}
		var item T
		if err := json.Unmarshal([]byte(raw), &item); err != nil {
			return nil, fmt.Errorf("failed to decode key %s: %w", keys[i], err)
		}
		items = append(items, item)
	}
	return items, nil
}

func prefixed(ids []string, key func(string) string) []string {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = key(id)
	}
	return keys
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func parseMillis(s string) *time.Time {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil || ms <= 0 {
		return nil
	}
	t := time.UnixMilli(ms)
	return &t
}
