package service

// In-memory fakes for the repository interfaces, shared by the tests in
// this package. They mirror the semantics the sqlite implementations
// guarantee (additive merges, symmetric edges, idempotent unlocks) with
// plain maps, no locking — the service tests are sequential.

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/arif/codepulse/internal/apperror"
	"github.com/arif/codepulse/internal/model"
	"github.com/arif/codepulse/internal/repository"
)

// ---------------------------------------------------------------------
// aggregates

type mockAggregateRepo struct {
	daily  map[string]*model.DailyAggregate  // userID|day
	hourly map[string]*model.HourlyAggregate // userID|day|hour
	err    error                             // when set, every call fails
}

var _ repository.AggregateRepository = (*mockAggregateRepo)(nil)

func newMockAggregateRepo() *mockAggregateRepo {
	return &mockAggregateRepo{
		daily:  make(map[string]*model.DailyAggregate),
		hourly: make(map[string]*model.HourlyAggregate),
	}
}

func dailyKey(userID, day string) string        { return userID + "|" + day }
func hourlyKey(userID, day string, h int) string { return fmt.Sprintf("%s|%s|%02d", userID, day, h) }

func (m *mockAggregateRepo) Merge(_ context.Context, userID, day string, hour int, delta model.ActivityDelta, now time.Time) error {
	if m.err != nil {
		return m.err
	}

	d, ok := m.daily[dailyKey(userID, day)]
	if !ok {
		d = &model.DailyAggregate{
			UserID: userID, Day: day,
			Projects:  make(map[string]int64),
			Languages: make(map[string]int64),
		}
		m.daily[dailyKey(userID, day)] = d
	}
	d.TotalSeconds += delta.Seconds
	d.LastUpdate = now
	for k, v := range delta.Projects {
		d.Projects[k] += v
	}
	for k, v := range delta.Languages {
		d.Languages[k] += v
	}

	h, ok := m.hourly[hourlyKey(userID, day, hour)]
	if !ok {
		h = &model.HourlyAggregate{
			UserID: userID, Day: day, Hour: hour,
			Projects:  make(map[string]int64),
			Languages: make(map[string]int64),
		}
		m.hourly[hourlyKey(userID, day, hour)] = h
	}
	h.TotalSeconds += delta.Seconds
	h.LastUpdate = now
	for k, v := range delta.Projects {
		h.Projects[k] += v
	}
	for k, v := range delta.Languages {
		h.Languages[k] += v
	}
	return nil
}

func (m *mockAggregateRepo) GetDaily(_ context.Context, userID, day string) (*model.DailyAggregate, error) {
	if m.err != nil {
		return nil, m.err
	}
	d, ok := m.daily[dailyKey(userID, day)]
	if !ok {
		return nil, apperror.NotFound("daily aggregate", userID+"/"+day)
	}
	copy := *d
	return &copy, nil
}

func (m *mockAggregateRepo) ListDailyRange(_ context.Context, userID, fromDay, toDay string) ([]model.DailyAggregate, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []model.DailyAggregate
	for _, d := range m.daily {
		if d.UserID == userID && d.Day >= fromDay && d.Day <= toDay {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out, nil
}

func (m *mockAggregateRepo) SumRange(_ context.Context, userID, fromDay, toDay string) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	var total int64
	for _, d := range m.daily {
		if d.UserID == userID && d.Day >= fromDay && d.Day <= toDay {
			total += d.TotalSeconds
		}
	}
	return total, nil
}

func (m *mockAggregateRepo) ListHourlyRange(_ context.Context, userID, fromDay, toDay string) ([]model.HourlyAggregate, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []model.HourlyAggregate
	for _, h := range m.hourly {
		if h.UserID == userID && h.Day >= fromDay && h.Day <= toDay {
			out = append(out, *h)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Day != out[j].Day {
			return out[i].Day < out[j].Day
		}
		return out[i].Hour < out[j].Hour
	})
	return out, nil
}

func (m *mockAggregateRepo) LanguageTotals(_ context.Context, userID, fromDay, toDay string) (map[string]int64, error) {
	if m.err != nil {
		return nil, m.err
	}
	totals := make(map[string]int64)
	for _, d := range m.daily {
		if d.UserID == userID && d.Day >= fromDay && d.Day <= toDay {
			for k, v := range d.Languages {
				totals[k] += v
			}
		}
	}
	return totals, nil
}

func (m *mockAggregateRepo) TotalSeconds(_ context.Context, userID string) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	var total int64
	for _, d := range m.daily {
		if d.UserID == userID {
			total += d.TotalSeconds
		}
	}
	return total, nil
}

func (m *mockAggregateRepo) MaxDailySeconds(_ context.Context, userID string) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	var max int64
	for _, d := range m.daily {
		if d.UserID == userID && d.TotalSeconds > max {
			max = d.TotalSeconds
		}
	}
	return max, nil
}

func (m *mockAggregateRepo) ActiveDays(_ context.Context, userID string) ([]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	var days []string
	for _, d := range m.daily {
		if d.UserID == userID && d.TotalSeconds > 0 {
			days = append(days, d.Day)
		}
	}
	return days, nil
}

func (m *mockAggregateRepo) DistinctLanguageCount(_ context.Context, userID string) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	langs := make(map[string]bool)
	for _, d := range m.daily {
		if d.UserID == userID {
			for k, v := range d.Languages {
				if v > 0 {
					langs[k] = true
				}
			}
		}
	}
	return len(langs), nil
}

func (m *mockAggregateRepo) HasActiveHourBetween(_ context.Context, userID string, fromHour, toHour int) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	for _, h := range m.hourly {
		if h.UserID == userID && h.Hour >= fromHour && h.Hour < toHour && h.TotalSeconds > 0 {
			return true, nil
		}
	}
	return false, nil
}

// ---------------------------------------------------------------------
// users

type mockUserRepo struct {
	users  map[string]*model.User
	nextID int
}

var _ repository.UserRepository = (*mockUserRepo)(nil)

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	for _, u := range m.users {
		if strings.EqualFold(u.Username, user.Username) {
			return apperror.Conflict("user", "username already taken")
		}
	}
	m.nextID++
	user.ID = fmt.Sprintf("user-%d", m.nextID)
	user.CreatedAt = time.Now().UTC()
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	copy := *u
	return &copy, nil
}

func (m *mockUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	for _, u := range m.users {
		if strings.EqualFold(u.Username, username) {
			copy := *u
			return &copy, nil
		}
	}
	return nil, apperror.NotFound("user", username)
}

func (m *mockUserRepo) GetByAPIKey(_ context.Context, apiKey string) (*model.User, error) {
	for _, u := range m.users {
		if u.APIKey == apiKey {
			copy := *u
			return &copy, nil
		}
	}
	return nil, apperror.NotFound("user", "by api key")
}

func (m *mockUserRepo) Search(_ context.Context, query, excludeID string, limit int) ([]model.User, error) {
	var out []model.User
	for _, u := range m.users {
		if u.ID == excludeID {
			continue
		}
		if containsFold(u.Username, query) {
			out = append(out, *u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockUserRepo) UpdateSettings(_ context.Context, userID string, settings model.Settings) error {
	u, ok := m.users[userID]
	if !ok {
		return apperror.NotFound("user", userID)
	}
	u.Settings = settings
	return nil
}

func (m *mockUserRepo) UpdateAvatar(_ context.Context, userID, avatar string) error {
	u, ok := m.users[userID]
	if !ok {
		return apperror.NotFound("user", userID)
	}
	u.Avatar = avatar
	return nil
}

func (m *mockUserRepo) UpdateAPIKey(_ context.Context, userID, apiKey string) error {
	u, ok := m.users[userID]
	if !ok {
		return apperror.NotFound("user", userID)
	}
	u.APIKey = apiKey
	return nil
}

// ---------------------------------------------------------------------
// friends

type mockFriendRepo struct {
	requests map[string]*model.FriendRequest
	edges    map[string]bool // "userID|friendID"
	nextID   int
}

var _ repository.FriendRepository = (*mockFriendRepo)(nil)

func newMockFriendRepo() *mockFriendRepo {
	return &mockFriendRepo{
		requests: make(map[string]*model.FriendRequest),
		edges:    make(map[string]bool),
	}
}

func edgeKey(a, b string) string { return a + "|" + b }

func (m *mockFriendRepo) CreateRequest(_ context.Context, req *model.FriendRequest) error {
	for _, r := range m.requests {
		if r.Status != model.RequestPending {
			continue
		}
		samePair := (r.FromUserID == req.FromUserID && r.ToUserID == req.ToUserID) ||
			(r.FromUserID == req.ToUserID && r.ToUserID == req.FromUserID)
		if samePair {
			return apperror.Conflict("friend request", "a pending request already exists")
		}
	}
	m.nextID++
	req.ID = fmt.Sprintf("req-%d", m.nextID)
	req.Status = model.RequestPending
	req.CreatedAt = time.Now().UTC()
	stored := *req
	m.requests[req.ID] = &stored
	return nil
}

func (m *mockFriendRepo) GetRequest(_ context.Context, id string) (*model.FriendRequest, error) {
	r, ok := m.requests[id]
	if !ok {
		return nil, apperror.NotFound("friend request", id)
	}
	copy := *r
	return &copy, nil
}

func (m *mockFriendRepo) ListPendingFor(_ context.Context, userID string) ([]model.FriendRequest, error) {
	var out []model.FriendRequest
	for _, r := range m.requests {
		if r.ToUserID == userID && r.Status == model.RequestPending {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *mockFriendRepo) HasPendingBetween(_ context.Context, a, b string) (bool, error) {
	for _, r := range m.requests {
		if r.Status != model.RequestPending {
			continue
		}
		if (r.FromUserID == a && r.ToUserID == b) || (r.FromUserID == b && r.ToUserID == a) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockFriendRepo) Accept(_ context.Context, requestID string, respondedAt time.Time) error {
	r, ok := m.requests[requestID]
	if !ok {
		return apperror.NotFound("friend request", requestID)
	}
	if r.Status != model.RequestPending {
		return apperror.Conflict("friend request", "request already responded to")
	}
	r.Status = model.RequestAccepted
	r.RespondedAt = &respondedAt
	m.edges[edgeKey(r.FromUserID, r.ToUserID)] = true
	m.edges[edgeKey(r.ToUserID, r.FromUserID)] = true
	return nil
}

func (m *mockFriendRepo) Reject(_ context.Context, requestID string, respondedAt time.Time) error {
	r, ok := m.requests[requestID]
	if !ok {
		return apperror.NotFound("friend request", requestID)
	}
	if r.Status != model.RequestPending {
		return apperror.Conflict("friend request", "request already responded to")
	}
	r.Status = model.RequestRejected
	r.RespondedAt = &respondedAt
	return nil
}

func (m *mockFriendRepo) EdgeExists(_ context.Context, userID, friendID string) (bool, error) {
	return m.edges[edgeKey(userID, friendID)], nil
}

func (m *mockFriendRepo) DeleteEdges(_ context.Context, userID, friendID string) error {
	delete(m.edges, edgeKey(userID, friendID))
	delete(m.edges, edgeKey(friendID, userID))
	return nil
}

func (m *mockFriendRepo) ListFriendIDs(_ context.Context, userID string) ([]string, error) {
	var ids []string
	for key, ok := range m.edges {
		if !ok {
			continue
		}
		owner, friend, found := strings.Cut(key, "|")
		if found && owner == userID {
			ids = append(ids, friend)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *mockFriendRepo) CountFriends(_ context.Context, userID string) (int, error) {
	ids, _ := m.ListFriendIDs(context.Background(), userID)
	return len(ids), nil
}

// ---------------------------------------------------------------------
// achievements

type mockAchievementRepo struct {
	unlocks map[string]*model.UnlockRecord // userID|achievementID
}

var _ repository.AchievementRepository = (*mockAchievementRepo)(nil)

func newMockAchievementRepo() *mockAchievementRepo {
	return &mockAchievementRepo{unlocks: make(map[string]*model.UnlockRecord)}
}

func (m *mockAchievementRepo) ListUnlocked(_ context.Context, userID string) ([]model.UnlockRecord, error) {
	var out []model.UnlockRecord
	for _, rec := range m.unlocks {
		if rec.UserID == userID {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (m *mockAchievementRepo) InsertUnlock(_ context.Context, rec *model.UnlockRecord) (bool, error) {
	key := rec.UserID + "|" + rec.AchievementID
	if _, ok := m.unlocks[key]; ok {
		return false, nil
	}
	stored := *rec
	m.unlocks[key] = &stored
	return true, nil
}

// ---------------------------------------------------------------------
// chat

type mockChatRepo struct {
	messages []*model.ChatMessage
	nextID   int
}

var _ repository.ChatRepository = (*mockChatRepo)(nil)

func newMockChatRepo() *mockChatRepo {
	return &mockChatRepo{}
}

func (m *mockChatRepo) CreateMessage(_ context.Context, msg *model.ChatMessage) error {
	m.nextID++
	msg.ID = fmt.Sprintf("msg-%d", m.nextID)
	msg.CreatedAt = time.Now().UTC().Add(time.Duration(m.nextID) * time.Millisecond)
	stored := *msg
	m.messages = append(m.messages, &stored)
	return nil
}

func (m *mockChatRepo) ListConversation(_ context.Context, userA, userB string, limit int, before *time.Time) ([]model.ChatMessage, error) {
	var out []model.ChatMessage
	for _, msg := range m.messages {
		between := (msg.FromUserID == userA && msg.ToUserID == userB) ||
			(msg.FromUserID == userB && msg.ToUserID == userA)
		if !between {
			continue
		}
		if before != nil && !msg.CreatedAt.Before(*before) {
			continue
		}
		out = append(out, *msg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockChatRepo) MarkRead(_ context.Context, userID, otherID string, now time.Time) (int64, error) {
	var n int64
	for _, msg := range m.messages {
		if msg.ToUserID == userID && msg.FromUserID == otherID && msg.ReadAt == nil {
			t := now
			msg.ReadAt = &t
			n++
		}
	}
	return n, nil
}

func (m *mockChatRepo) CountUnread(_ context.Context, userID string) (int64, error) {
	var n int64
	for _, msg := range m.messages {
		if msg.ToUserID == userID && msg.ReadAt == nil {
			n++
		}
	}
	return n, nil
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
