package protocol

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bridgeclient/internal/bridge"
)

func TestStatusOK(t *testing.T) {
	assert.True(t, statusOK("OK"))
	assert.False(t, statusOK("ERR:NF"))
	assert.False(t, statusOK(""))
}

func TestErrorFromStatus(t *testing.T) {
	tests := []struct {
		status string
		want   error
	}{
		{"ERR:UNK", ErrUnknownClient},
		{"ERR:NF", ErrNotFound},
		{"ERR:AE", ErrAlreadyExists},
		{"ERR:NA", ErrNotAuthorized},
		{"ERR:SR", ErrSeatReserved},
		{"ERR:RV", bridge.ErrRuleViolation},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			assert.ErrorIs(t, errorFromStatus(tt.status), tt.want)
		})
	}
}

func TestErrorFromUnknownStatus(t *testing.T) {
	err := errorFromStatus("ERR:XX")
	require.Error(t, err)
	assert.NotErrorIs(t, err, bridge.ErrRuleViolation)
}

func asObject(t *testing.T, s string) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(s), &m))
	return m
}

func TestDecodeDealMergesPrivateState(t *testing.T) {
	dealID := uuid.MustParse("7f9b0a2c-3d4e-4f50-9a6b-1c2d3e4f5a6b")
	pubstate := asObject(t, `{
		"deal": "7f9b0a2c-3d4e-4f50-9a6b-1c2d3e4f5a6b",
		"positionInTurn": "east",
		"calls": [{"position": "north", "call": {"type": "pass"}}],
		"cards": {
			"north": [null, null],
			"south": [null, null]
		}
	}`)
	privstate := asObject(t, `{
		"cards": {
			"south": [
				{"rank": "ace", "suit": "spades"},
				{"rank": "2", "suit": "hearts"}
			]
		}
	}`)

	deal, err := decodeDeal(pubstate, privstate)
	require.NoError(t, err)
	require.NotNil(t, deal)

	assert.Equal(t, dealID, deal.ID)
	require.NotNil(t, deal.PositionInTurn)
	assert.Equal(t, bridge.East, *deal.PositionInTurn)
	require.Len(t, deal.Calls, 1)
	assert.Equal(t, bridge.North, deal.Calls[0].Position)

	// The private patch reveals the player's own hand; other hands stay
	// as unknown-card placeholders.
	require.Len(t, deal.Cards.South, 2)
	assert.Equal(t, bridge.Card{Rank: bridge.Ace, Suit: bridge.SuitSpades}, *deal.Cards.South[0])
	require.Len(t, deal.Cards.North, 2)
	assert.Nil(t, deal.Cards.North[0])
	assert.Nil(t, deal.Cards.North[1])
}

func TestDecodeDealWithoutPrivateState(t *testing.T) {
	pubstate := asObject(t, `{"deal": "7f9b0a2c-3d4e-4f50-9a6b-1c2d3e4f5a6b"}`)

	deal, err := decodeDeal(pubstate, nil)
	require.NoError(t, err)
	require.NotNil(t, deal)
	assert.Equal(t, uuid.MustParse("7f9b0a2c-3d4e-4f50-9a6b-1c2d3e4f5a6b"), deal.ID)
}

func TestDecodeDealNilMeansNoOngoingDeal(t *testing.T) {
	deal, err := decodeDeal(nil, nil)
	require.NoError(t, err)
	assert.Nil(t, deal)
}

func TestDecodeDealRejectsBadState(t *testing.T) {
	pubstate := asObject(t, `{"deal": "not-a-uuid"}`)

	_, err := decodeDeal(pubstate, nil)
	assert.Error(t, err)
}
