package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReceiptStatusIsTerminal(t *testing.T) {
	assert.False(t, ReceiptStatusUploaded.IsTerminal())
	assert.False(t, ReceiptStatusProcessing.IsTerminal())
	assert.True(t, ReceiptStatusFinal.IsTerminal())
	assert.True(t, ReceiptStatusNeedsReview.IsTerminal())
}

func TestEnumWireValues(t *testing.T) {
	assert.Equal(t, SourceChannel("upload"), SourceChannelUpload)
	assert.Equal(t, SourceChannel("email"), SourceChannelEmail)
	assert.Equal(t, SourceChannel("bot"), SourceChannelBot)

	assert.Equal(t, CategoryAssigner("rule"), CategoryAssignerRule)
	assert.Equal(t, CategoryAssigner("ai"), CategoryAssignerAI)
	assert.Equal(t, CategoryAssigner("user"), CategoryAssignerUser)
	assert.Equal(t, CategoryAssigner("default"), CategoryAssignerDefault)

	assert.Equal(t, UserPlan("free"), UserPlanFree)
	assert.Equal(t, UserPlan("pro"), UserPlanPro)
}

func TestAllowedContentTypesRoundTrip(t *testing.T) {
	for fileType, contentType := range AllowedFileTypes {
		assert.Equal(t, fileType, AllowedContentTypes[contentType])
	}
}
