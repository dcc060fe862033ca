package idempotency

import (
	"strconv"
	"strings"
)

// UpdateKey names the claim for one Telegram update. botID keeps claims of
// different bots sharing a Redis apart.
func UpdateKey(botID int64, updateID int) string {
	return "update:" + strconv.FormatInt(botID, 10) + ":" + strconv.Itoa(updateID)
}

// BotIDFromToken returns the numeric prefix of a bot token, or 0 when the token has none.
func BotIDFromToken(token string) int64 {
	head, _, found := strings.Cut(token, ":")
	if !found {
		return 0
	}
	id, err := strconv.ParseInt(head, 10, 64)
	if err != nil {
		return 0
	}
	return id
}
