package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/yigit/classroom/internal/app/models"
)

// Display ranks used by OrderForView
const (
	rankAccepted = 0
	rankLinked   = 1
	rankUnlinked = 2
)

// UnlinkedUserResolver finds users who took part in an organization's
// assignments or group assignments but are not linked to its roster.
type UnlinkedUserResolver struct {
	participation ParticipationStore
	entries       RosterEntryStore
}

// NewUnlinkedUserResolver creates a new UnlinkedUserResolver
func NewUnlinkedUserResolver(participation ParticipationStore, entries RosterEntryStore) *UnlinkedUserResolver {
	return &UnlinkedUserResolver{
		participation: participation,
		entries:       entries,
	}
}

// UnlinkedUserIDs returns the unlinked users of org sorted by id. An
// organization without a roster has no linked users.
func (r *UnlinkedUserResolver) UnlinkedUserIDs(ctx context.Context, org *models.Organization) ([]int64, error) {
	assignmentUsers, err := r.participation.AssignmentParticipantIDs(ctx, org.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load assignment participants: %w", err)
	}

	groupUsers, err := r.participation.GroupParticipantIDs(ctx, org.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load group participants: %w", err)
	}

	var linked []int64
	if org.HasRoster() {
		linked, err = r.entries.LinkedUserIDs(ctx, *org.RosterID)
		if err != nil {
			return nil, fmt.Errorf("failed to load linked users: %w", err)
		}
	}

	return subtractUserIDs(linked, assignmentUsers, groupUsers), nil
}

// IsUnlinked reports whether userID belongs to the unlinked set of org
func (r *UnlinkedUserResolver) IsUnlinked(ctx context.Context, org *models.Organization, userID int64) (bool, error) {
	ids, err := r.UnlinkedUserIDs(ctx, org)
	if err != nil {
		return false, err
	}
	i := sort.Search(len(ids), func(i int) bool { return ids[i] >= userID })
	return i < len(ids) && ids[i] == userID, nil
}

// subtractUserIDs computes the union of sets minus excluded, sorted and
// free of duplicates.
func subtractUserIDs(excluded []int64, sets ...[]int64) []int64 {
	skip := make(map[int64]struct{}, len(excluded))
	for _, id := range excluded {
		skip[id] = struct{}{}
	}

	result := []int64{}
	for _, set := range sets {
		for _, id := range set {
			if _, ok := skip[id]; ok {
				continue
			}
			skip[id] = struct{}{}
			result = append(result, id)
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

// OrderForView returns the entries ordered for display against one
// assignment: linked users holding a repository for it first, other linked
// users next, unlinked entries last, each tier by entry id. The input slice
// is left untouched.
func OrderForView(entries []*models.RosterEntry, acceptedUserIDs []int64) []*models.RosterEntry {
	accepted := make(map[int64]struct{}, len(acceptedUserIDs))
	for _, id := range acceptedUserIDs {
		accepted[id] = struct{}{}
	}

	ordered := make([]*models.RosterEntry, len(entries))
	copy(ordered, entries)

	sort.SliceStable(ordered, func(i, j int) bool {
		ri, rj := entryRank(ordered[i], accepted), entryRank(ordered[j], accepted)
		if ri != rj {
			return ri < rj
		}
		return ordered[i].ID < ordered[j].ID
	})
	return ordered
}

// EntryStatus classifies an entry against the users holding a repository
func EntryStatus(entry *models.RosterEntry, accepted map[int64]struct{}) models.EntryStatus {
	switch entryRank(entry, accepted) {
	case rankAccepted:
		return models.EntryStatusAccepted
	case rankLinked:
		return models.EntryStatusLinked
	default:
		return models.EntryStatusUnlinked
	}
}

func entryRank(entry *models.RosterEntry, accepted map[int64]struct{}) int {
	if entry.UserID == nil {
		return rankUnlinked
	}
	if _, ok := accepted[*entry.UserID]; ok {
		return rankAccepted
	}
	return rankLinked
}
