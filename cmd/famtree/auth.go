package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"famtree/internal/analytics"
	"famtree/internal/remote"
	"famtree/internal/ui"
)

func loginCmd(a *app) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with e-mail and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.requireClient()
			if err != nil {
				return err
			}
			sess, err := client.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			if err := a.local.SetSession(cmd.Context(), sess.Token, sess.User); err != nil {
				return err
			}
			a.tracker.Send(cmd.Context(), analytics.LoginSuccess, map[string]any{"method": "email"})
			fmt.Fprintf(a.out, "  %s signed in as %s\n", ui.StatusIcon(true), sess.User.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account e-mail")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func registerCmd(a *app) *cobra.Command {
	var email, password, name string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.requireClient()
			if err != nil {
				return err
			}
			a.tracker.Send(cmd.Context(), analytics.RegistrationStart, nil)
			sess, err := client.Register(cmd.Context(), email, password, name)
			if err != nil {
				return err
			}
			if err := a.local.SetSession(cmd.Context(), sess.Token, sess.User); err != nil {
				return err
			}
			a.tracker.Send(cmd.Context(), analytics.RegistrationComplete, nil)
			fmt.Fprintf(a.out, "  %s welcome, %s\n", ui.StatusIcon(true), firstNonEmpty(sess.User.DisplayName, sess.User.Email))
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account e-mail")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func logoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.local.ClearSession(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "  %s signed out\n", ui.StatusIcon(true))
			return nil
		},
	}
}

func whoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Check the stored session with the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.requireClient()
			if err != nil {
				return err
			}
			user, err := client.Verify(cmd.Context())
			if err != nil {
				var re *remote.RemoteError
				if errors.As(err, &re) && re.Status == 401 {
					_ = a.local.ClearSession(cmd.Context())
				}
				return err
			}
			admin := ""
			if a.cfg.IsAdmin(user.Email) {
				admin = ui.Warn.Sprint(" (admin)")
			}
			fmt.Fprintf(a.out, "  %s%s\n", firstNonEmpty(user.DisplayName, user.Email), admin)
			return nil
		},
	}
}

func oauthURLCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "oauth-url <yandex|vk>",
		Short:     "Print the URL that starts social sign-in",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{remote.ProviderYandex, remote.ProviderVK},
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.requireClient()
			if err != nil {
				return err
			}
			u, err := client.OAuthURL(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, u)
			return nil
		},
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
