package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/wansing/perspective-lims/core"
	"github.com/wansing/perspective-lims/setup"
	"golang.org/x/term"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Install the LIMS structure, roles, groups, permissions and workflow proxies",
	Long:  "Install the LIMS structure, roles, groups, permissions and workflow proxies. Running it again adds what is missing.",
	RunE: func(cmd *cobra.Command, args []string) error {

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		s, err := openSite(cfg, prometheus.NewRegistry()) // metrics are not served
		if err != nil {
			return err
		}
		defer s.Close()

		return setup.NewGenerator(s.core, s.logger).Run(cmd.Context())
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create users and groups",
	Example: `  lims init --insert --group labmanagers --roles Member,LabManager
  lims init --insert --user alice@example.org
  lims init --join --group labmanagers --user alice@example.org`,
	RunE: func(cmd *cobra.Command, args []string) error {

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		var (
			insert, _    = cmd.Flags().GetBool("insert")
			joinGroup, _ = cmd.Flags().GetBool("join")
			groupname, _ = cmd.Flags().GetString("group")
			username, _  = cmd.Flags().GetString("user")
			roles, _     = cmd.Flags().GetStringSlice("roles")
		)

		s, err := openSite(cfg, prometheus.NewRegistry()) // metrics are not served
		if err != nil {
			return err
		}
		defer s.Close()

		switch {
		case insert:
			if groupname != "" {
				if err := s.core.InsertGroup(groupname, roles); err != nil {
					return fmt.Errorf(`error creating group "%s": %w`, groupname, err)
				}
			}
			if username != "" {
				return insertUser(s.core, username)
			}
		case joinGroup:
			if groupname == "" || username == "" {
				return errors.New("--join requires --group and --user")
			}
			return join(s.core, groupname, username)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().Bool("insert", false, "creates the given group or user")
	initCmd.Flags().Bool("join", false, "joins the given user to the given group")
	initCmd.Flags().String("group", "", "specifies a group `name`")
	initCmd.Flags().String("user", "", "specifies a user `name`")
	initCmd.Flags().StringSlice("roles", nil, "roles of the inserted group")
}

func readPassword(prompt string) ([]byte, error) {
	fmt.Print(prompt)
	pass, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	return pass, err
}

func insertUser(c *core.CoreDB, name string) error {

	pass1, err := readPassword(fmt.Sprintf("password for user %s: ", name))
	if err != nil {
		return fmt.Errorf("error reading password: %w", err)
	}

	pass2, err := readPassword("repeat password: ")
	if err != nil {
		return fmt.Errorf("error reading password: %w", err)
	}

	if !bytes.Equal(pass1, pass2) {
		return errors.New("passwords don't match")
	}

	user, err := c.InsertUser(name)
	if err != nil {
		return fmt.Errorf("error creating user %s: %w", name, err)
	}

	if err := c.SetPassword(user, string(pass1)); err != nil {
		return fmt.Errorf("error setting password: %w", err)
	}
	return nil
}

func join(c *core.CoreDB, groupname string, username string) error {

	group, err := c.GetGroupByName(groupname)
	if err != nil {
		return fmt.Errorf("error getting group %s: %w", groupname, err)
	}

	user, err := c.GetUserByName(username)
	if err != nil {
		return fmt.Errorf("error getting user %s: %w", username, err)
	}

	if err := c.Join(group, user); err != nil {
		return fmt.Errorf("error joining: %w", err)
	}
	return nil
}
