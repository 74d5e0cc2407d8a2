package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ariefcatur/go-storefront/internal/backend"
	"github.com/ariefcatur/go-storefront/internal/contacts"
)

func (a *app) usersCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "users", Short: "Registered customers"}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, err := a.ctx(cmd)
			if err != nil {
				return err
			}
			users, err := a.client.Users(ctx)
			if err != nil {
				return fmt.Errorf("load users: %w", err)
			}
			return a.table("ID\tNAME\tEMAIL\tMOBILE\tJOINED", func(w io.Writer) {
				for _, u := range users {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", u.ID, u.Name, u.Email, u.Mobile, u.CreatedAt.Format("2006-01-02"))
				}
			})
		},
	})
	return cmd
}

func (a *app) contactsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "contacts", Short: "Contact-form inbox"}

	var q string
	list := &cobra.Command{
		Use:   "list",
		Short: "List messages",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, err := a.ctx(cmd)
			if err != nil {
				return err
			}
			msgs, err := a.client.Contacts(ctx)
			if err != nil {
				return fmt.Errorf("load contact messages: %w", err)
			}
			msgs = contacts.Search(msgs, q)
			return a.table("ID\tFROM\tEMAIL\tSUBJECT\tREPLIED", func(w io.Writer) {
				for _, m := range msgs {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\n", m.ID, m.Name, m.Email, m.Subject, m.Replied)
				}
			})
		},
	}
	list.Flags().StringVar(&q, "q", "", "search name, email, subject or message")

	var subject, body string
	reply := &cobra.Command{
		Use:   "reply MESSAGE_ID",
		Short: "Email a reply to the sender",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := a.ctx(cmd)
			if err != nil {
				return err
			}
			if subject == "" {
				if m, ok := a.findContact(cmd, args[0]); ok {
					subject = contacts.ReplySubject(m)
				}
			}
			if err := contacts.Reply(ctx, a.client, args[0], subject, body); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Reply sent successfully")
			return nil
		},
	}
	reply.Flags().StringVar(&subject, "subject", "", `subject (defaults to "Re: <original subject>")`)
	reply.Flags().StringVar(&body, "message", "", "reply text")

	replied := &cobra.Command{
		Use:   "replied MESSAGE_ID [true|false]",
		Short: "Mark a message replied, or flip the flag when no value is given",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := a.ctx(cmd)
			if err != nil {
				return err
			}
			if len(args) == 2 {
				v, err := strconv.ParseBool(args[1])
				if err != nil {
					return err
				}
				return a.client.SetContactReplied(ctx, args[0], v)
			}
			m, ok := a.findContact(cmd, args[0])
			if !ok {
				return contacts.ErrNoMessage
			}
			return contacts.ToggleReplied(ctx, a.client, m)
		},
	}

	del := &cobra.Command{
		Use:   "delete MESSAGE_ID",
		Short: "Delete a message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := a.ctx(cmd)
			if err != nil {
				return err
			}
			if err := a.client.DeleteContact(ctx, args[0]); err != nil {
				return fmt.Errorf("delete message: %w", err)
			}
			fmt.Fprintf(a.out, "deleted %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(list, reply, replied, del)
	return cmd
}

func (a *app) findContact(cmd *cobra.Command, id string) (backend.Contact, bool) {
	ctx, err := a.ctx(cmd)
	if err != nil {
		return backend.Contact{}, false
	}
	msgs, err := a.client.Contacts(ctx)
	if err != nil {
		return backend.Contact{}, false
	}
	for _, m := range msgs {
		if m.ID == id {
			return m, true
		}
	}
	return backend.Contact{}, false
}
