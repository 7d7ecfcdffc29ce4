package fcm

import (
	"errors"
	"testing"

	"firebase.google.com/go/v4/messaging"
	"github.com/stretchr/testify/assert"
)

func TestMulticast_CarriesWebpush(t *testing.T) {
	msg := multicast([]string{"a", "b"}, NotificationData{
		Title: "New mail",
		Body:  "From bob",
		Data:  map[string]string{"type": "new_email"},
	})

	assert.Equal(t, []string{"a", "b"}, msg.Tokens)
	assert.Equal(t, "New mail", msg.Notification.Title)
	assert.Equal(t, "From bob", msg.Webpush.Notification.Body)
	assert.Equal(t, webIcon, msg.Webpush.Notification.Icon)
	assert.Equal(t, "new_email", msg.Data["type"])
}

func TestFailedTokens(t *testing.T) {
	responses := []*messaging.SendResponse{
		{Success: true, MessageID: "m1"},
		{Success: false, Error: errors.New("unregistered")},
		{Success: true, MessageID: "m3"},
	}
	assert.Equal(t, []string{"t2"}, failedTokens([]string{"t1", "t2", "t3"}, responses))
	assert.Nil(t, failedTokens(nil, nil))
}
