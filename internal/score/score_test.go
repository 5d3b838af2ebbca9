package score

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/couchcryptid/hazard-intel-service/internal/domain"
)

func boolPtr(b bool) *bool { return &b }

func TestScore_ReferenceVectors(t *testing.T) {
	c := domain.Classification{Label: domain.LabelTsunami, Confidence: 1.0}
	eng := domain.Engagement{Known: true}

	// 10 base + 5 confidence + log10(1) = 15.0
	assert.Equal(t, 15.0, Score(c, nil, eng, domain.VerificationMetadata{}))

	// Explicit location mismatch subtracts 3.
	v := domain.VerificationMetadata{LocationMatch: boolPtr(false)}
	assert.Equal(t, 12.0, Score(c, nil, eng, v))
}

func TestScore_Terms(t *testing.T) {
	base := domain.Classification{Label: domain.LabelFlood, Confidence: 0.5}

	tests := []struct {
		name     string
		c        domain.Classification
		entities []domain.Entity
		eng      domain.Engagement
		v        domain.VerificationMetadata
		expected float64
	}{
		{
			name:     "base plus confidence only",
			c:        base,
			expected: 9.5, // 7 + 0.5*5
		},
		{
			name: "location entities add two each",
			c:    base,
			entities: []domain.Entity{
				{Text: "Chennai", Type: domain.EntityLocation},
				{Text: "Kochi", Type: domain.EntityLocation},
				{Text: "INCOIS", Type: domain.EntityOrganization},
			},
			expected: 13.5, // 9.5 + 2*2, non-location entity ignored
		},
		{
			name:     "engagement is log scaled",
			c:        base,
			eng:      domain.Engagement{Likes: 50, Shares: 30, Comments: 19, Known: true},
			expected: 11.5, // 9.5 + log10(100)
		},
		{
			name:     "unknown engagement contributes nothing",
			c:        base,
			eng:      domain.Engagement{Likes: 50, Shares: 30, Comments: 19},
			expected: 9.5,
		},
		{
			name:     "delayed upload penalty",
			c:        base,
			v:        domain.VerificationMetadata{DelayedUpload: true},
			expected: 7.5,
		},
		{
			name:     "unknown location match is not penalized",
			c:        base,
			v:        domain.VerificationMetadata{LocationMatch: nil},
			expected: 9.5,
		},
		{
			name:     "confirmed location match is not a bonus",
			c:        base,
			v:        domain.VerificationMetadata{LocationMatch: boolPtr(true)},
			expected: 9.5,
		},
		{
			name:     "authority verified bonus",
			c:        base,
			v:        domain.VerificationMetadata{AuthorityStatus: domain.AuthorityVerified},
			expected: 12.5,
		},
		{
			name:     "authority not verified penalty",
			c:        base,
			v:        domain.VerificationMetadata{AuthorityStatus: domain.AuthorityNotVerified},
			expected: 6.5,
		},
		{
			name:     "authority disabled is neutral",
			c:        base,
			v:        domain.VerificationMetadata{AuthorityStatus: domain.AuthorityDisabled},
			expected: 9.5,
		},
		{
			name:     "authority error is neutral",
			c:        base,
			v:        domain.VerificationMetadata{AuthorityStatus: domain.AuthorityError},
			expected: 9.5,
		},
		{
			name: "clamped at zero",
			c:    domain.Classification{Label: domain.LabelOther, Confidence: 0},
			v: domain.VerificationMetadata{
				DelayedUpload:   true,
				LocationMatch:   boolPtr(false),
				AuthorityStatus: domain.AuthorityNotVerified,
			},
			expected: 0, // 1 - 2 - 3 - 3 clamps
		},
		{
			name:     "rounded to one decimal",
			c:        domain.Classification{Label: domain.LabelHighWaves, Confidence: 0.33},
			expected: 5.7, // 4 + 1.65 = 5.65 rounds up
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, Score(tt.c, tt.entities, tt.eng, tt.v), 1e-9)
		})
	}
}

func TestScore_Idempotent(t *testing.T) {
	c := domain.Classification{Label: domain.LabelCyclone, Confidence: 0.87}
	entities := []domain.Entity{{Text: "Vizag", Type: domain.EntityLocation}}
	eng := domain.Engagement{Likes: 12, Shares: 4, Comments: 7, Known: true}
	v := domain.VerificationMetadata{AuthorityStatus: domain.AuthorityVerified}

	first := Score(c, entities, eng, v)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Score(c, entities, eng, v))
	}
	assert.GreaterOrEqual(t, first, 0.0)
}

func TestScore_AllLabelsHaveSeverity(t *testing.T) {
	for _, label := range domain.AllHazardLabels {
		t.Run(string(label), func(t *testing.T) {
			s := Score(domain.Classification{Label: label}, nil, domain.Engagement{}, domain.VerificationMetadata{})
			assert.Greater(t, s, 0.0)
		})
	}
}
