package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Tracking sets.

func SessionsTracking(gymID int) string {
	return fmt.Sprintf("tracking:sessions:%d", gymID)
}

func TrainerSessionsTracking(trainerID int) string {
	return fmt.Sprintf("tracking:sessions:trainer:%d", trainerID)
}

func ClassSessionsTracking(classID int) string {
	return fmt.Sprintf("tracking:sessions:class:%d", classID)
}

func ClassesTracking(gymID int) string {
	return fmt.Sprintf("tracking:classes:%d", gymID)
}

func HoursTracking(gymID int) string {
	return fmt.Sprintf("tracking:hours:%d", gymID)
}

func MemberTracking(gymID, memberID int) string {
	return fmt.Sprintf("tracking:participations:%d:member:%d", gymID, memberID)
}

// GymScope separates concurrent fetches of keys that are not gym-scoped.
func GymScope(gymID int) string {
	return fmt.Sprintf("gym:%d", gymID)
}

// Direct keys.

func SessionKey(sessionID int) string {
	return fmt.Sprintf("sessions:detail:%d", sessionID)
}

func AvailabilityKey(sessionID int) string {
	return fmt.Sprintf("sessions:availability:%d", sessionID)
}

func ClassKey(classID int) string {
	return fmt.Sprintf("classes:detail:%d", classID)
}

func WeeklyHoursKey(gymID int) string {
	return fmt.Sprintf("hours:weekly:%d", gymID)
}

func EffectiveHoursKey(gymID int, date string) string {
	return fmt.Sprintf("hours:effective:%d:%s", gymID, date)
}

func HoursRangeKey(gymID int, start, end string) string {
	return fmt.Sprintf("hours:range:%d:%s:%s", gymID, start, end)
}

func ClassListKey(gymID int, params ...interface{}) string {
	return QueryKey(fmt.Sprintf("classes:list:%d", gymID), params...)
}

func SessionListKey(gymID int, params ...interface{}) string {
	return QueryKey(fmt.Sprintf("sessions:list:%d", gymID), params...)
}

func HistoryKey(gymID, memberID int, params ...interface{}) string {
	return QueryKey(fmt.Sprintf("participations:history:%d:%d", gymID, memberID), params...)
}

func LastAttendanceKey(gymID, memberID int) string {
	return fmt.Sprintf("member:%d:last_attendance:%d", memberID, gymID)
}

func DashboardKey(gymID, memberID int) string {
	return fmt.Sprintf("member:%d:dashboard:%d", memberID, gymID)
}

// MemberViews names the member-scoped views a change to one of the member's
// participations, or to a session they hold one in, makes stale.
func MemberViews(gymID, memberID int) Invalidation {
	return Invalidation{
		Keys:         []string{LastAttendanceKey(gymID, memberID), DashboardKey(gymID, memberID)},
		TrackingSets: []string{MemberTracking(gymID, memberID)},
	}
}

// QueryKey builds a key for a parameterised query. The parameters are hashed
// so arbitrary filters (search terms, ranges, pagination) give bounded keys.
func QueryKey(prefix string, params ...interface{}) string {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = fmt.Sprint(p)
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return prefix + ":" + hex.EncodeToString(sum[:8])
}
