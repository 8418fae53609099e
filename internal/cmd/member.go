package cmd

import (
	"fmt"
	"io"

	"github.com/Iron-Ham/postflow/internal/errors"
	"github.com/Iron-Ham/postflow/internal/role"
	"github.com/Iron-Ham/postflow/internal/store"
	"github.com/spf13/cobra"
)

func newMemberCmd() *cobra.Command {
	memberCmd := &cobra.Command{
		Use:   "member",
		Short: "Manage organization members and their roles",
	}
	memberCmd.AddCommand(
		&cobra.Command{
			Use:   "add <organization> <user> <role>",
			Short: "Grant a role to a user in an organization",
			Long: `Grant a role to a user in an organization. Members holding a step's
required role receive its review tasks. Granting an existing role is a no-op.`,
			Args: cobra.ExactArgs(3),
			RunE: runMemberAdd,
		},
		&cobra.Command{
			Use:   "list <organization>",
			Short: "List the members of an organization",
			Args:  cobra.ExactArgs(1),
			RunE:  runMemberList,
		},
	)
	return memberCmd
}

func runMemberAdd(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	r, err := role.Parse(args[2])
	if err != nil {
		return errors.NewValidationError("invalid role").WithField("role").WithValue(args[2]).WithCause(err)
	}
	if known := a.cfg.Roles.KnownRoles(); !known.Contains(r) {
		return errors.NewValidationError(fmt.Sprintf("unknown role (known: %v)", known.Strings())).
			WithField("role").WithValue(r.String())
	}

	m := store.Membership{OrganizationID: args[0], UserID: args[1], Role: r}
	if err := a.store.Members().Add(cmd.Context(), m); err != nil {
		return err
	}
	a.logger.Info("member added", "organization_id", m.OrganizationID, "user_id", m.UserID, "role", m.Role.String())

	return newPrinter(cmd).emit(m, func(w io.Writer) {
		success(w, "%s is %s in %s", m.UserID, m.Role, m.OrganizationID)
	})
}

func runMemberList(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	members, err := a.store.Members().List(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if members == nil {
		members = []store.Membership{}
	}

	p := newPrinter(cmd)
	return p.emit(members, func(w io.Writer) {
		if len(members) == 0 {
			hint(w, "No members in %s. Add one with: postflow member add %s <user> <role>", args[0], args[0])
			return
		}
		tw := p.table("USER", "ROLE")
		for _, m := range members {
			fmt.Fprintf(tw, "%s\t%s\n", m.UserID, m.Role)
		}
		_ = tw.Flush()
	})
}
