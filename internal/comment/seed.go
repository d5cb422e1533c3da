package comment

import (
	"fmt"
	"strconv"
	"time"
)

// SeedResult names the entities Seed created.
type SeedResult struct {
	HostID       int64  `json:"hostId"`
	CollectiveID int64  `json:"collectiveId"`
	UserID       int64  `json:"userId"`
	Expense      Parent `json:"expense"`
	Conversation Parent `json:"conversation"`
}

// Seed creates a hosted collective with one user, a pending expense submitted
// by that user, and a conversation, each carrying n comments. Slugs get a
// clock-derived suffix so Seed can run repeatedly against one database.
func (r *Repository) Seed(n int) (*SeedResult, error) {
	suffix := strconv.FormatInt(time.Now().UnixNano(), 36)
	balance := int64(150000)

	hostID, err := r.CreateCollective(NewCollective{
		Type: TypeOrganization, Name: "Open Source Collective", Slug: "host-" + suffix, Currency: "USD",
	})
	if err != nil {
		return nil, fmt.Errorf("seeding host: %w", err)
	}
	colID, err := r.CreateCollective(NewCollective{
		Name: "Demo Collective", Slug: "demo-" + suffix, Currency: "USD", Balance: &balance, HostID: hostID,
	})
	if err != nil {
		return nil, fmt.Errorf("seeding collective: %w", err)
	}
	userID, err := r.CreateCollective(NewCollective{
		Type: TypeUser, Name: "Demo User", Slug: "user-" + suffix, Email: "demo+" + suffix + "@example.com",
	})
	if err != nil {
		return nil, fmt.Errorf("seeding user: %w", err)
	}

	expID, err := r.CreateExpense(NewExpense{
		CollectiveID: colID, UserID: userID, Description: "Team offsite", Amount: 12000,
	})
	if err != nil {
		return nil, fmt.Errorf("seeding expense: %w", err)
	}
	convID, err := r.CreateConversation(colID, "Welcome", []string{"intro"})
	if err != nil {
		return nil, fmt.Errorf("seeding conversation: %w", err)
	}

	res := &SeedResult{
		HostID:       hostID,
		CollectiveID: colID,
		UserID:       userID,
		Expense:      Parent{Kind: KindExpense, ID: expID},
		Conversation: Parent{Kind: KindConversation, ID: convID},
	}

	for _, p := range []Parent{res.Expense, res.Conversation} {
		for i := 1; i <= n; i++ {
			_, err := r.Add(NewComment{
				HTML:             fmt.Sprintf("<p>Comment %d on %s</p>", i, p),
				Parent:           p,
				CollectiveID:     colID,
				FromCollectiveID: userID,
			})
			if err != nil {
				return nil, fmt.Errorf("seeding comment %d on %s: %w", i, p, err)
			}
		}
	}

	return res, nil
}
