package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	appModels "github.com/yigit/classroom/internal/app/models"
	appRepos "github.com/yigit/classroom/internal/app/repositories"
	"github.com/yigit/classroom/internal/pkg/apperrors"
)

// DemoOrganizationSlug identifies the seeded organization
const DemoOrganizationSlug = "demo-classroom"

// CreateDemoData creates a demo organization with an instructor, a roster and
// one assignment that two students accepted. It does nothing when the
// organization already exists and returns the instructor either way.
func CreateDemoData(ctx context.Context, repos *appRepos.Repositories, lgr zerolog.Logger) (*appModels.User, error) {
	instructor := &appModels.User{UID: 9000001, Login: "demo-instructor"}
	if err := repos.UserRepository.Create(ctx, instructor); err != nil {
		return nil, fmt.Errorf("failed to create demo instructor: %w", err)
	}

	_, err := repos.OrganizationRepository.GetBySlug(ctx, DemoOrganizationSlug)
	if err == nil {
		lgr.Info().Str("organization", DemoOrganizationSlug).Msg("Demo data already present, skipping")
		return instructor, nil
	}
	if !errors.Is(err, apperrors.ErrOrganizationNotFound) {
		return nil, err
	}

	lgr.Info().Msg("Creating demo data...")

	org := &appModels.Organization{GitHubID: 9100001, Title: "Demo Classroom", Slug: DemoOrganizationSlug}
	if err := repos.OrganizationRepository.Create(ctx, org); err != nil {
		return nil, err
	}
	if err := repos.OrganizationRepository.AddMember(ctx, org.ID, instructor.ID); err != nil {
		return nil, err
	}

	var finalErr error
	students := make([]*appModels.User, 0, 3)
	for i, login := range []string{"demo-ada", "demo-grace", "demo-linus"} {
		student := &appModels.User{UID: int64(9000100 + i), Login: login}
		if err := repos.UserRepository.Create(ctx, student); err != nil {
			lgr.Error().Err(err).Str("login", login).Msg("Error creating demo student")
			finalErr = errors.Join(finalErr, err)
			continue
		}
		students = append(students, student)
	}

	roster := &appModels.Roster{IdentifierName: "Student ID"}
	for _, identifier := range []string{"ada@example.edu", "grace@example.edu", "linus@example.edu", "ken@example.edu"} {
		roster.Entries = append(roster.Entries, &appModels.RosterEntry{Identifier: identifier})
	}
	if err := repos.RosterRepository.CreateForOrganization(ctx, org.ID, roster, nil); err != nil {
		return nil, errors.Join(finalErr, err)
	}

	assignment := &appModels.Assignment{OrganizationID: org.ID, Title: "Lab 1", Slug: "lab-1"}
	if err := repos.AssignmentRepository.Create(ctx, assignment); err != nil {
		return nil, errors.Join(finalErr, err)
	}

	// the first two students accepted the assignment, the first one is on the roster
	for i, student := range students {
		if i >= 2 {
			break
		}
		repo := &appModels.AssignmentRepo{AssignmentID: assignment.ID, UserID: &student.ID, GitHubRepoID: int64(9200000 + i)}
		if err := repos.AssignmentRepository.CreateRepo(ctx, repo); err != nil {
			lgr.Error().Err(err).Str("login", student.Login).Msg("Error creating demo repository")
			finalErr = errors.Join(finalErr, err)
		}
	}
	if len(students) > 0 && len(roster.Entries) > 0 {
		if err := repos.RosterEntryRepository.Link(ctx, roster.ID, roster.Entries[0].ID, students[0].ID, nil); err != nil {
			finalErr = errors.Join(finalErr, err)
		}
	}

	lgr.Info().Int64("organizationID", org.ID).Int64("rosterID", roster.ID).Msg("Demo data created")
	return instructor, finalErr
}
