package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shelfkeeper/shelfkeeper/internal/apiclient"
)

func newLoginCmd(a *app) *cobra.Command {
	var (
		email       string
		password    string
		displayName string
		register    bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the access token",
		Long: `Sign in to the server and keep the access token in the config file.
The password is read from --password, $SHELF_PASSWORD or the first line of
standard input. With --register a new account is created first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if email == "" {
				email = a.v.GetString(cfgKeyEmail)
			}
			if email == "" {
				return errors.New("--email is required")
			}
			if password == "" {
				password = a.v.GetString("password")
			}
			if password == "" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return errors.New("no password given")
				}
				password = strings.TrimRight(line, "\r\n")
			}

			var (
				res *apiclient.AuthResult
				err error
			)
			if register {
				res, err = a.client.Register(cmd.Context(), email, password, displayName)
			} else {
				res, err = a.client.Login(cmd.Context(), email, password)
			}
			if err != nil {
				return err
			}

			if err := saveSession(a.configPath, a.v.GetString(cfgKeyServer), res.User.Email, res.AccessToken); err != nil {
				return err
			}

			if a.jsonOutput() {
				return a.writeJSON(res.User)
			}
			fmt.Fprintf(a.out, "Signed in as %s until %s\n", res.User.Email, res.ExpiresAt.Local().Format("2006-01-02 15:04"))
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&email, "email", "", "account email (default: last signed-in account)")
	f.StringVar(&password, "password", "", "account password")
	f.StringVar(&displayName, "name", "", "display name for --register")
	f.BoolVar(&register, "register", false, "create the account first")
	return cmd
}
