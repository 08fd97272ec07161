package services

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/classroom/internal/app/models"
)

func exportEntries() []*models.RosterEntry {
	return []*models.RosterEntry{
		{
			ID: 1, Identifier: "alice", UserID: int64Ptr(10),
			User: &models.User{ID: 10, UID: 583231, Login: "octocat", Name: strPtr("The Octocat")},
		},
		{
			ID: 2, Identifier: "bob", UserID: int64Ptr(11),
			User: &models.User{ID: 11, UID: 42, Login: "hubot"},
		},
		{ID: 3, Identifier: "carol, jr"},
	}
}

func TestWriteRosterCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRosterCSV(&buf, exportEntries(), nil))

	want := "identifier,github_username,github_id,name,status\n" +
		"alice,octocat,583231,The Octocat,linked\n" +
		"bob,hubot,42,,linked\n" +
		"\"carol, jr\",,,,unlinked\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteRosterCSV_WithGrouping(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRosterCSV(&buf, exportEntries(), map[int64]string{10: "Team A"}))

	want := "identifier,github_username,github_id,name,status,group_name\n" +
		"alice,octocat,583231,The Octocat,linked,Team A\n" +
		"bob,hubot,42,,linked,\n" +
		"\"carol, jr\",,,,unlinked,\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteRosterCSV_EmptyGroupingKeepsColumn(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRosterCSV(&buf, nil, map[int64]string{}))
	assert.Equal(t, "identifier,github_username,github_id,name,status,group_name\n", buf.String())
}
