package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/orgdesk/orgdesk/internal/db"
	"github.com/orgdesk/orgdesk/internal/models"
)

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Populate a demo org in the database",
		Long:  "seed writes a small demo org (clubs, profiles, conversations, messages) into the configured database. Intended for a fresh database; running it twice duplicates the demo conversations.",
		RunE:  runSeed,
	}
}

func runSeed(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	orgID := a.cfg.Identity.OrgID
	if orgID == "" {
		orgID = "org-demo"
	}

	if err := seedDemoOrg(cmd.Context(), a.store, orgID); err != nil {
		return fmt.Errorf("seed demo org: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Seeded org %s. Try: orgdesk conversations --org %s --user admin-1\n", orgID, orgID)
	return nil
}

func seedDemoOrg(ctx context.Context, store *db.Store, orgID string) error {
	profiles := []models.Profile{
		{ID: "admin-1", OrgID: orgID, DisplayName: "Dana Admin"},
		{ID: "robotics-user", OrgID: orgID, DisplayName: "Robotics Club"},
		{ID: "chess-user", OrgID: orgID, DisplayName: "Chess Club"},
		{ID: "drama-president", OrgID: orgID, DisplayName: "Priya President"},
	}
	for i := range profiles {
		if err := store.Parties.InsertProfile(ctx, &profiles[i]); err != nil {
			return err
		}
	}

	clubs := []models.Club{
		{ID: "club-robotics", OrgID: orgID, Name: "Robotics", PrimaryUserID: "robotics-user"},
		{ID: "club-chess", OrgID: orgID, Name: "Chess", PrimaryUserID: "chess-user"},
		{ID: "club-drama", OrgID: orgID, Name: "Drama"},
	}
	for i := range clubs {
		if err := store.Parties.InsertClub(ctx, &clubs[i]); err != nil {
			return err
		}
	}

	if err := store.Parties.InsertOfficer(ctx, &models.Officer{
		ID: "officer-drama-1", ClubID: "club-drama", UserID: "drama-president",
		Position: "President", Rank: 1,
	}); err != nil {
		return err
	}

	type seedConversation struct {
		category models.Category
		other    models.ConversationMember
		bodies   []seedMessage
	}
	seeds := []seedConversation{
		{
			category: models.CategoryClub,
			other:    models.ConversationMember{UserID: "robotics-user", MemberType: models.MemberTypeClub, ClubID: "club-robotics"},
			bodies: []seedMessage{
				{"admin-1", "Welcome to the new semester! Budget forms are due Friday."},
				{"robotics-user", "Thanks! We submitted ours this morning."},
				{"robotics-user", "Also, could we book the workshop for Saturday?"},
			},
		},
		{
			category: models.CategoryClub,
			other:    models.ConversationMember{UserID: "chess-user", MemberType: models.MemberTypeClub, ClubID: "club-chess"},
			bodies: []seedMessage{
				{"chess-user", "The tournament bracket is posted."},
			},
		},
		{
			category: models.CategoryOfficer,
			other:    models.ConversationMember{UserID: "drama-president", MemberType: models.MemberTypeOfficer},
			bodies: []seedMessage{
				{"admin-1", "Your room reservation for the spring show is confirmed."},
				{"drama-president", "Wonderful, thank you!"},
			},
		},
	}

	for _, seed := range seeds {
		conv := &models.Conversation{OrgID: orgID, Category: seed.category}
		if err := store.InsertConversation(ctx, conv); err != nil {
			return err
		}
		self := models.ConversationMember{
			ConversationID: conv.ID, UserID: "admin-1", MemberType: models.MemberTypeAdmin,
		}
		if err := store.InsertMember(ctx, self); err != nil {
			return err
		}
		other := seed.other
		other.ConversationID = conv.ID
		if err := store.InsertMember(ctx, other); err != nil {
			return err
		}

		for _, body := range seed.bodies {
			senderType := models.MemberTypeAdmin
			if body.sender != "admin-1" {
				senderType = other.MemberType
			}
			msg := &models.Message{
				ConversationID: conv.ID,
				OrgID:          orgID,
				SenderID:       body.sender,
				SenderType:     senderType,
				Body:           body.text,
			}
			if err := store.InsertMessage(ctx, msg); err != nil {
				return err
			}
		}
	}

	return nil
}

type seedMessage struct {
	sender string
	text   string
}
