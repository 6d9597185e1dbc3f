package sqlstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/averho/banter/internal/models"
	"github.com/averho/banter/internal/store"
)

func TestCreateGroupAddsCreatorAsMember(t *testing.T) {
	s := newTestStore(t)
	alice := createTestUser(t, s, "alice")

	groupID, err := s.CreateGroup("general", "everything else", alice.ID)
	require.NoError(t, err)

	member, err := s.IsGroupMember(groupID, alice.ID)
	require.NoError(t, err)
	assert.True(t, member)

	group, err := s.GetGroup(groupID)
	require.NoError(t, err)
	assert.Equal(t, "general", group.Name)
	assert.Equal(t, alice.ID, group.CreatedBy)
}

func TestAddGroupMemberIdempotent(t *testing.T) {
	s := newTestStore(t)
	alice := createTestUser(t, s, "alice")
	bob := createTestUser(t, s, "bob")
	groupID, err := s.CreateGroup("general", "", alice.ID)
	require.NoError(t, err)

	require.NoError(t, s.AddGroupMember(groupID, bob.ID))
	// Joining again is not an error.
	require.NoError(t, s.AddGroupMember(groupID, bob.ID))

	members, err := s.GetGroupMembers(groupID)
	require.NoError(t, err)
	assert.Len(t, members, 2)
}

func TestSaveGroupMessageHydration(t *testing.T) {
	s := newTestStore(t)
	alice := createTestUser(t, s, "alice")
	groupID, err := s.CreateGroup("general", "", alice.ID)
	require.NoError(t, err)

	msg, err := s.SaveGroupMessage(groupID, alice.ID, "hello all")
	require.NoError(t, err)

	assert.NotZero(t, msg.ID)
	assert.Equal(t, alice.ID, msg.SenderID)
	assert.Equal(t, "alice", msg.SenderName)
	assert.Equal(t, groupID, msg.GroupID)
	assert.Equal(t, "general", msg.GroupName)
	assert.Equal(t, models.KindGroup, msg.Kind)
	assert.False(t, msg.CreatedAt.IsZero())
}

func TestGetGroupMessagesOrdered(t *testing.T) {
	s := newTestStore(t)
	alice := createTestUser(t, s, "alice")
	bob := createTestUser(t, s, "bob")
	groupID, err := s.CreateGroup("general", "", alice.ID)
	require.NoError(t, err)
	require.NoError(t, s.AddGroupMember(groupID, bob.ID))

	_, err = s.SaveGroupMessage(groupID, alice.ID, "first")
	require.NoError(t, err)
	_, err = s.SaveGroupMessage(groupID, bob.ID, "second")
	require.NoError(t, err)

	messages, err := s.GetGroupMessages(groupID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "first", messages[0].Content)
	assert.Equal(t, "second", messages[1].Content)
	assert.Equal(t, "bob", messages[1].SenderName)
}

func TestGroupListings(t *testing.T) {
	s := newTestStore(t)
	alice := createTestUser(t, s, "alice")
	bob := createTestUser(t, s, "bob")

	g1, err := s.CreateGroup("alpha", "", alice.ID)
	require.NoError(t, err)
	_, err = s.CreateGroup("beta", "", bob.ID)
	require.NoError(t, err)
	require.NoError(t, s.AddGroupMember(g1, bob.ID))

	all, err := s.GetGroups()
	require.NoError(t, err)
	require.Len(t, all, 2)
	for _, g := range all {
		if g.ID == g1 {
			assert.Equal(t, 2, g.MemberCount)
			assert.Equal(t, "alice", g.CreatorName)
		}
	}

	mine, err := s.GetUserGroups(bob.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	theirs, err := s.GetUserGroups(alice.ID)
	require.NoError(t, err)
	assert.Len(t, theirs, 1)
}

func TestGetGroupNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetGroup(99)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
