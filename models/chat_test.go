package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChatDocument_Thread(t *testing.T) {
	req := require.New(t)

	doc := &ChatDocument{
		UserID: "u1",
		CoworkerChats: []CoworkerChat{
			{CoworkerID: "u2"},
			{CoworkerID: "u3"},
		},
	}

	thread, ok := doc.Thread("u3")
	req.True(ok)
	req.Equal("u3", thread.CoworkerID)

	_, ok = doc.Thread("stranger")
	req.False(ok)

	var nilDoc *ChatDocument
	_, ok = nilDoc.Thread("u2")
	req.False(ok)
}
