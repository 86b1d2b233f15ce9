package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shandysiswandi/docmailer/internal/pkg/clock"
	"github.com/shandysiswandi/docmailer/internal/pkg/docmail"
	"github.com/shandysiswandi/docmailer/internal/pkg/jwt"
	"github.com/shandysiswandi/docmailer/internal/pkg/uid"
	"github.com/spf13/cobra"
)

func (c *cli) newBalanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Print the account balance of the configured payment method",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			balance, err := c.client.Balance(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%.2f\n", balance)
			return nil
		},
	}
}

func (c *cli) newSendCmd() *cobra.Command {
	var (
		file      string
		name      string
		addresses []string
		csvPath   string
		options   []string
		wait      bool
		expected  string
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Create, fill and process a mailing in one go",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			parsed, err := parseAddresses(addresses)
			if err != nil {
				return err
			}
			if csvPath != "" {
				fromCSV, err := readAddressCSV(csvPath)
				if err != nil {
					return err
				}
				parsed = append(parsed, fromCSV...)
			}
			if len(parsed) == 0 {
				return errors.New("at least one --address or --csv row is required")
			}

			sent, err := c.client.SendFile(cmd.Context(), file, func(m *docmail.Client) error {
				if name != "" {
					m.Mailing().MailingName = name
				}
				for _, opt := range options {
					field, value, ok := strings.Cut(opt, "=")
					if !ok {
						return fmt.Errorf("option %q must look like Field=value", opt)
					}
					if err := m.Mailing().Set(field, value); err != nil {
						return err
					}
				}
				for _, a := range parsed {
					m.AddAddress(a)
				}
				return nil
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "mailing_guid=%s order_ref=%s\n", sent.MailingGUID(), sent.OrderRef())

			if !wait {
				return nil
			}

			res, err := sent.WaitForStatus(cmd.Context(), expected, true)
			fmt.Fprintf(out, "status=%q attempts=%d\n", res.Status, res.Attempts)
			if res.Diagnostic != "" {
				fmt.Fprintf(out, "diagnostic=%q\n", res.Diagnostic)
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "template document to print")
	cmd.Flags().StringVarP(&name, "name", "n", "", "mailing name")
	cmd.Flags().StringArrayVarP(&addresses, "address", "a", nil, `recipient as "Full Name;Address 1;Address 2[;Address 3..5]"`)
	cmd.Flags().StringVar(&csvPath, "csv", "", "CSV of recipients, one per row, same columns as --address")
	cmd.Flags().StringArrayVarP(&options, "set", "s", nil, "mailing field override, e.g. --set IsMono=false")
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "poll until the mailing reaches --expected")
	cmd.Flags().StringVar(&expected, "expected", "Mailing submitted", "status to wait for")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func (c *cli) newStatusCmd() *cobra.Command {
	var (
		guid     string
		expected string
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Poll a mailing until it reaches the expected status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c.client.Attach(guid, "")
			res, err := c.client.WaitForStatus(cmd.Context(), expected, false)
			fmt.Fprintf(cmd.OutOrStdout(), "status=%q attempts=%d\n", res.Status, res.Attempts)
			if res.Diagnostic != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "diagnostic=%q\n", res.Diagnostic)
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&guid, "guid", "g", "", "mailing GUID")
	cmd.Flags().StringVar(&expected, "expected", "Mailing submitted", "status to wait for")
	_ = cmd.MarkFlagRequired("guid")

	return cmd
}

func (c *cli) newProofCmd() *cobra.Command {
	var (
		guid     string
		orderRef string
		out      string
	)

	cmd := &cobra.Command{
		Use:   "proof",
		Short: "Download the proof PDF of a mailing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c.client.Attach(guid, orderRef)
			data, err := c.client.ProofFile(cmd.Context())
			if err != nil {
				return err
			}
			if data == nil {
				return errors.New("proof is not ready yet, try again later")
			}
			if err := os.WriteFile(out, data, 0o600); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d bytes to %s\n", len(data), out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&guid, "guid", "g", "", "mailing GUID")
	cmd.Flags().StringVar(&orderRef, "order-ref", "", "order reference returned by send")
	cmd.Flags().StringVarP(&out, "out", "o", "proof.pdf", "output file")
	_ = cmd.MarkFlagRequired("guid")

	return cmd
}

func (c *cli) newDeleteCmd() *cobra.Command {
	var guid string

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a mailing at Docmail",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.client.DeleteMailing(cmd.Context(), guid); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "deleted", guid)
			return nil
		},
	}

	cmd.Flags().StringVarP(&guid, "guid", "g", "", "mailing GUID")
	_ = cmd.MarkFlagRequired("guid")

	return cmd
}

func (c *cli) newTokenCmd() *cobra.Command {
	var (
		clientID string
		role     string
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API bearer token for a client",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			signer, err := jwt.NewHS512(jwt.Config{
				Secret:    []byte(c.cfg.GetString("jwt.secret")),
				Issuer:    c.cfg.GetString("jwt.issuer"),
				Audiences: c.cfg.GetArray("jwt.audiences"),
				TTL:       c.cfg.GetMinute("jwt.ttl_minutes"),
				Leeway:    c.cfg.GetSecond("jwt.leeway_seconds"),
				Clock:     clock.New(time.UTC),
				UUID:      uid.NewUUID(),
			})
			if err != nil {
				return err
			}

			token, err := signer.Generate(clientID, role)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&clientID, "client-id", "", "client the token acts for")
	cmd.Flags().StringVar(&role, "role", "client", "casbin role of the client")
	_ = cmd.MarkFlagRequired("client-id")

	return cmd
}

// parseAddresses reads "Full Name;Address 1;Address 2[;...]" recipients.
func parseAddresses(raw []string) ([]*docmail.Address, error) {
	out := make([]*docmail.Address, 0, len(raw))
	for _, r := range raw {
		a, err := addressFromFields(strings.Split(r, ";"))
		if err != nil {
			return nil, fmt.Errorf("address %q: %w", r, err)
		}
		out = append(out, a)
	}
	return out, nil
}

func readAddressCSV(path string) ([]*docmail.Address, error) {
	// #nosec G304 -- path comes from the operator.
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	rows, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	out := make([]*docmail.Address, 0, len(rows))
	for i, row := range rows {
		a, err := addressFromFields(row)
		if err != nil {
			return nil, fmt.Errorf("csv row %d: %w", i+1, err)
		}
		out = append(out, a)
	}
	return out, nil
}

func addressFromFields(fields []string) (*docmail.Address, error) {
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	if len(fields) < 3 || len(fields) > 6 {
		return nil, errors.New("want full name plus 2 to 5 address lines")
	}
	a := docmail.BasicAddress(fields[0], fields[1], fields[2], fields[3:min(len(fields), 5)]...)
	if len(fields) == 6 {
		a.Address5 = fields[5]
	}
	return a, nil
}
