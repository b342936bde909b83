package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeMetadataSelectsVariantByType(t *testing.T) {
	meta, err := DecodeMetadata(TicketTypeVolumeShortfall,
		[]byte(`{"expected_applications":40,"actual_applications":12,"time_period":"last 7 days"}`))
	require.NoError(t, err)
	vs, ok := meta.(*VolumeShortfallMeta)
	require.True(t, ok)
	assert.Equal(t, 40, vs.ExpectedApplications)
	assert.Equal(t, 12, vs.ActualApplications)

	meta, err = DecodeMetadata(TicketTypeCredentialIssue, []byte(`{"issue_type":"2fa_enabled"}`))
	require.NoError(t, err)
	assert.Equal(t, CredentialTwoFactorEnabled, meta.(*CredentialIssueMeta).IssueType)

	meta, err = DecodeMetadata(TicketTypeNoInterviews, nil)
	require.NoError(t, err)
	assert.IsType(t, &GenericMeta{}, meta)
}

func TestDecodeMetadataRejectsMismatchedVariant(t *testing.T) {
	_, err := DecodeMetadata(TicketTypeVolumeShortfall, []byte(`{"issue_type":"account_locked"}`))
	require.Error(t, err)

	var metaErr *MetadataError
	assert.True(t, errors.As(err, &metaErr))
}

func TestDecodeMetadataValidatesFields(t *testing.T) {
	cases := []struct {
		name  string
		typ   TicketType
		raw   string
		field string
	}{
		{"vs missing counts", TicketTypeVolumeShortfall, `{}`, "expected_applications"},
		{"vs missing period", TicketTypeVolumeShortfall, `{"expected_applications":5}`, "time_period"},
		{"credential bad enum", TicketTypeCredentialIssue, `{"issue_type":"forgot"}`, "issue_type"},
		{"profile bad field", TicketTypeProfileDataIssue, `{"incorrect_field":"age","correct_value":"x"}`, "incorrect_field"},
		{"profile missing value", TicketTypeProfileDataIssue, `{"incorrect_field":"location"}`, "correct_value"},
		{"am missing name", TicketTypeAMNotResponding, `{"days_since_onboarding":3}`, "assigned_am"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeMetadata(tc.typ, []byte(tc.raw))
			var metaErr *MetadataError
			require.True(t, errors.As(err, &metaErr))
			assert.Equal(t, tc.field, metaErr.Field)
		})
	}
}

func TestDecodeMetadataUnknownType(t *testing.T) {
	_, err := DecodeMetadata(TicketType("printer_jam"), nil)
	assert.Error(t, err)
}

func TestStoredMetadataIsLenient(t *testing.T) {
	raw, err := EncodeMetadata(&JobFeedEmptyMeta{Locations: []string{"Austin"}})
	require.NoError(t, err)

	meta, err := DecodeStoredMetadata(TicketTypeJobFeedEmpty, raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"Austin"}, meta.(*JobFeedEmptyMeta).Locations)

	meta, err = DecodeStoredMetadata(TicketTypeVolumeShortfall, nil)
	require.NoError(t, err)
	assert.IsType(t, &VolumeShortfallMeta{}, meta)
}

func TestStatusAndRoleHelpers(t *testing.T) {
	assert.True(t, TicketStatusClosed.IsTerminal())
	assert.True(t, TicketStatusResolved.IsTerminal())
	assert.False(t, TicketStatusReplied.IsTerminal())

	assert.True(t, RoleCEO.IsExecutive())
	assert.False(t, RoleAccountManager.IsExecutive())
	assert.True(t, RoleAccountManager.SeesAllTickets())
	assert.False(t, RoleCATeamLead.SeesAllTickets())
	assert.False(t, Role("intern").Valid())
}
