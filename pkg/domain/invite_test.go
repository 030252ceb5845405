package domain

import (
	"testing"
	"time"
)

func TestInviteIsExpired(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		expiresAt time.Time
		want      bool
	}{
		{"expires in the future", now.Add(time.Hour), false},
		{"expires one second from now", now.Add(time.Second), false},
		{"expires exactly now", now, true},
		{"expired one second ago", now.Add(-time.Second), true},
		{"expired long ago", now.Add(-30 * 24 * time.Hour), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := &Invite{ExpiresAt: tt.expiresAt}
			if got := inv.IsExpired(now); got != tt.want {
				t.Errorf("IsExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRoleGrantIsActive(t *testing.T) {
	active := &RoleGrant{Status: RoleGrantStatusActive}
	if !active.IsActive() {
		t.Error("IsActive() = false for active grant")
	}
	revoked := &RoleGrant{Status: RoleGrantStatusRevoked}
	if revoked.IsActive() {
		t.Error("IsActive() = true for revoked grant")
	}
}

func TestSubscriptionSnapshot(t *testing.T) {
	var nilSub *Subscription
	if nilSub.Snapshot() != nil {
		t.Error("Snapshot() of nil subscription should be nil")
	}

	end := time.Now()
	sub := &Subscription{
		Status:            SubscriptionStatusCanceled,
		GracePeriodEndsAt: &end,
	}
	snap := sub.Snapshot()
	if snap.Status != SubscriptionStatusCanceled {
		t.Errorf("Status = %s, want canceled", snap.Status)
	}
	if snap.GracePeriodEndsAt == nil || !snap.GracePeriodEndsAt.Equal(end) {
		t.Error("GracePeriodEndsAt not carried into snapshot")
	}
}
