package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/arif/codepulse/internal/apperror"
	"github.com/arif/codepulse/internal/model"
	"github.com/arif/codepulse/internal/repository"
)

// MaxSearchResults caps SearchUsers so a broad query cannot page the
// whole user table.
const MaxSearchResults = 15

// FriendService maintains the friendship graph and builds the
// friends-activity feed. The feed needs users (sharing preferences),
// aggregates (today's totals) and the presence resolver, all injected.
type FriendService struct {
	friends    repository.FriendRepository
	users      repository.UserRepository
	aggregates repository.AggregateRepository
	presence   *PresenceResolver
	logger     *slog.Logger
	now        func() time.Time
}

// NewFriendService creates a FriendService.
func NewFriendService(
	friends repository.FriendRepository,
	users repository.UserRepository,
	aggregates repository.AggregateRepository,
	presence *PresenceResolver,
	logger *slog.Logger,
) *FriendService {
	return &FriendService{
		friends:    friends,
		users:      users,
		aggregates: aggregates,
		presence:   presence,
		logger:     logger,
		now:        time.Now,
	}
}

// SendRequest creates a pending friend request from fromUserID to the
// user named by target (a username, matched case-insensitively, or an
// internal ID). It fails with NotFound for an unknown target,
// InvalidOperation for self-requests, and Conflict when an edge or a
// pending request already exists in either direction.
func (s *FriendService) SendRequest(ctx context.Context, fromUserID, target string) (*model.FriendRequest, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return nil, apperror.ValidationFailed("target", "friend username or ID is required")
	}

	toUser, err := s.resolveTarget(ctx, target)
	if err != nil {
		return nil, err
	}
	if toUser.ID == fromUserID {
		return nil, apperror.InvalidOperation("cannot send a friend request to yourself")
	}

	already, err := s.friends.EdgeExists(ctx, fromUserID, toUser.ID)
	if err != nil {
		return nil, fmt.Errorf("checking existing friendship: %w", err)
	}
	if already {
		return nil, apperror.Conflict("friend request", "users are already friends")
	}

	// The store's pending-pair constraint still backstops a concurrent
	// duplicate slipping past this check.
	pending, err := s.friends.HasPendingBetween(ctx, fromUserID, toUser.ID)
	if err != nil {
		return nil, fmt.Errorf("checking pending request: %w", err)
	}
	if pending {
		return nil, apperror.Conflict("friend request", "a pending request already exists")
	}

	req := &model.FriendRequest{FromUserID: fromUserID, ToUserID: toUser.ID}
	if err := s.friends.CreateRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("creating friend request: %w", err)
	}

	s.logger.Info("friend request sent",
		slog.String("from", fromUserID),
		slog.String("to", toUser.ID),
	)
	return req, nil
}

func (s *FriendService) resolveTarget(ctx context.Context, target string) (*model.User, error) {
	user, err := s.users.GetByUsername(ctx, target)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("resolving friend target: %w", err)
	}
	return s.users.GetByID(ctx, target)
}

// AcceptRequest accepts a pending request addressed to actingUserID.
// The status flip and both directed edges land in one storage
// transaction.
func (s *FriendService) AcceptRequest(ctx context.Context, requestID, actingUserID string) error {
	req, err := s.friends.GetRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if req.ToUserID != actingUserID {
		return apperror.Forbidden("only the recipient can respond to a friend request")
	}
	if req.Status != model.RequestPending {
		return apperror.Conflict("friend request", "request already responded to")
	}

	if err := s.friends.Accept(ctx, requestID, s.now().UTC()); err != nil {
		return fmt.Errorf("accepting friend request: %w", err)
	}

	s.logger.Info("friend request accepted",
		slog.String("request", requestID),
		slog.String("by", actingUserID),
	)
	return nil
}

// RejectRequest rejects a pending request addressed to actingUserID.
func (s *FriendService) RejectRequest(ctx context.Context, requestID, actingUserID string) error {
	req, err := s.friends.GetRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if req.ToUserID != actingUserID {
		return apperror.Forbidden("only the recipient can respond to a friend request")
	}
	if req.Status != model.RequestPending {
		return apperror.Conflict("friend request", "request already responded to")
	}

	if err := s.friends.Reject(ctx, requestID, s.now().UTC()); err != nil {
		return fmt.Errorf("rejecting friend request: %w", err)
	}

	s.logger.Info("friend request rejected",
		slog.String("request", requestID),
		slog.String("by", actingUserID),
	)
	return nil
}

// RemoveFriend deletes both directed edges. Removing a friendship that
// does not exist is not an error.
func (s *FriendService) RemoveFriend(ctx context.Context, userID, friendID string) error {
	if friendID == "" {
		return apperror.ValidationFailed("friendId", "friend ID is required")
	}
	if err := s.friends.DeleteEdges(ctx, userID, friendID); err != nil {
		return fmt.Errorf("removing friend: %w", err)
	}
	s.logger.Info("friend removed",
		slog.String("user", userID),
		slog.String("friend", friendID),
	)
	return nil
}

// PendingRequests returns the pending requests addressed to userID.
func (s *FriendService) PendingRequests(ctx context.Context, userID string) ([]model.FriendRequest, error) {
	reqs, err := s.friends.ListPendingFor(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing pending requests: %w", err)
	}
	return reqs, nil
}

// SearchUsers finds users whose username contains query,
// case-insensitively, excluding the searching user.
func (s *FriendService) SearchUsers(ctx context.Context, query, excludeUserID string) ([]model.User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperror.ValidationFailed("query", "search query is required")
	}
	users, err := s.users.Search(ctx, query, excludeUserID, MaxSearchResults)
	if err != nil {
		return nil, fmt.Errorf("searching users: %w", err)
	}
	return users, nil
}

// FriendActivity builds the presence feed for userID.
//
// Friends who disabled activity sharing appear blanked: offline, zero
// seconds, no project or language. For everyone else, today's aggregate
// drives presence; the top project and language are only surfaced when
// the friend is not offline and the matching share flag is on. The
// result is sorted by status rank (online, idle, offline), then by
// active seconds descending.
func (s *FriendService) FriendActivity(ctx context.Context, userID string) ([]model.FriendActivityView, error) {
	friendIDs, err := s.friends.ListFriendIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing friends: %w", err)
	}

	now := s.now().UTC()
	today := now.Format(model.DayFormat)

	views := make([]model.FriendActivityView, 0, len(friendIDs))
	for _, friendID := range friendIDs {
		friend, err := s.users.GetByID(ctx, friendID)
		if err != nil {
			if errors.Is(err, apperror.ErrNotFound) {
				// Dangling edge; skip rather than fail the feed.
				continue
			}
			return nil, fmt.Errorf("loading friend %s: %w", friendID, err)
		}

		view := model.FriendActivityView{
			UserID:   friend.ID,
			Username: friend.Username,
			Avatar:   friend.Avatar,
			Status:   string(StatusOffline),
		}

		if !friend.Settings.ShareActivity {
			views = append(views, view)
			continue
		}

		agg, err := s.aggregates.GetDaily(ctx, friendID, today)
		if err != nil && !errors.Is(err, apperror.ErrNotFound) {
			return nil, fmt.Errorf("loading aggregate for %s: %w", friendID, err)
		}

		if agg != nil {
			status := s.presence.Classify(agg.LastUpdate, now)
			view.Status = string(status)
			view.ActiveSeconds = agg.TotalSeconds
			if status != StatusOffline {
				if friend.Settings.ShareProjectName {
					view.Project = agg.TopProject()
				}
				if friend.Settings.ShareLanguage {
					view.Language = agg.TopLanguage()
				}
			}
		}

		views = append(views, view)
	}

	sort.SliceStable(views, func(i, j int) bool {
		ri, rj := Status(views[i].Status).Rank(), Status(views[j].Status).Rank()
		if ri != rj {
			return ri < rj
		}
		return views[i].ActiveSeconds > views[j].ActiveSeconds
	})

	return views, nil
}
