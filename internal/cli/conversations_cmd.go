// conversations_cmd.go -- conversations list|get|messages|stats.
package cli

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/michame/console/internal/apiclient"
	"github.com/michame/console/internal/format"
	"github.com/michame/console/internal/models"
)

func newConversationsCommand(app *App) *cobra.Command {
	convs := &cobra.Command{
		Use:     "conversations",
		Aliases: []string{"convs"},
		Short:   "Inspect WhatsApp conversations",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List conversations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f := cmd.Flags()
			page, _ := f.GetInt("page")
			limit, _ := f.GetInt("limit")
			q := apiclient.ConversationQuery{Page: page, Limit: limit}
			if f.Changed("active") {
				active, _ := f.GetBool("active")
				q.Active = &active
			}

			ctx := cmd.Context()
			if err := app.authed(ctx); err != nil {
				return err
			}
			return app.watch(cmd, func(ctx context.Context) error {
				found, err := app.reader().Conversations(ctx, q)
				if err != nil {
					return err
				}
				return app.render(found, func() *table { return conversationsTable(found) })
			})
		},
	}
	list.Flags().Bool("active", false, "only active (true) or inactive (false) conversations")
	list.Flags().Int("page", 0, "page number")
	list.Flags().Int("limit", 0, "conversations per page")
	addWatchFlags(list)

	get := &cobra.Command{
		Use:   "get <conversation-id>",
		Short: "Show one conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := app.authed(ctx); err != nil {
				return err
			}
			c, err := check(app.client.Conversation(ctx, args[0]), "Conversation not found")
			if err != nil {
				return err
			}
			return app.render(c, func() *table {
				return kv(
					"ID", c.ID,
					"Customer", format.Deref(c.Customer.Name, "-"),
					"Phone", format.PhoneNumber(c.Customer.PhoneNumber),
					"State", c.State,
					"Active", strconv.FormatBool(c.IsActive),
					"Ride", format.Deref(c.RideID, "-")+" "+format.Deref(c.RideStatus, ""),
					"Last message", format.RelativeTime(c.LastMessageAt),
					"Started", format.Timestamp(c.CreatedAt),
				)
			})
		},
	}

	messages := &cobra.Command{
		Use:   "messages <conversation-id>",
		Short: "Show a conversation transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := app.authed(ctx); err != nil {
				return err
			}
			return app.watch(cmd, func(ctx context.Context) error {
				msgs, err := check(app.client.ConversationMessages(ctx, args[0]), "Failed to load messages")
				if err != nil {
					return err
				}
				return app.render(msgs, func() *table {
					t := newTable("TIME", "DIRECTION", "TYPE", "CONTENT")
					for _, m := range msgs {
						t.add(format.Timestamp(m.CreatedAt), m.Direction, m.MessageType, format.Truncate(m.Content, 80))
					}
					return t
				})
			})
		},
	}
	addWatchFlags(messages)

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show active conversation counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := app.authed(ctx); err != nil {
				return err
			}
			s, err := check(app.client.ConversationStats(ctx), "Failed to load conversation stats")
			if err != nil {
				return err
			}
			return app.render(s, func() *table {
				return kv(
					"Active", strconv.Itoa(s.ActiveConversations),
					"Today", strconv.Itoa(s.ConversationsToday),
					"Messages today", strconv.Itoa(s.MessagesToday),
				)
			})
		},
	}

	convs.AddCommand(list, get, messages, stats)
	return convs
}

func conversationsTable(list []models.Conversation) *table {
	t := newTable("ID", "CUSTOMER", "PHONE", "STATE", "ACTIVE", "LAST MESSAGE", "WHEN")
	for _, c := range list {
		last := "-"
		if c.LastMessage != nil {
			last = format.Truncate(c.LastMessage.Content, 40)
		}
		t.add(c.ID, format.Deref(c.Customer.Name, "-"), format.PhoneNumber(c.Customer.PhoneNumber), c.State,
			strconv.FormatBool(c.IsActive), last, format.RelativeTime(c.LastMessageAt))
	}
	return t
}
