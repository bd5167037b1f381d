package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/clubmigrantegt/contigo-unido-sub000/backend/shared/go-models"
	"github.com/clubmigrantegt/contigo-unido-sub000/backend/shared/go-utils"
)

var otpCmd = &cobra.Command{
	Use:   "otp",
	Short: "Inspect one-time codes",
}

var otpLatestCmd = &cobra.Command{
	Use:   "latest <phone>",
	Short: "Show the live code for a phone number",
	Long: `latest prints the most recent code issued to the phone and its state
(ISSUED, VERIFIED or EXPIRED). The code itself is masked unless --reveal
is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runOtpLatest,
}

var (
	otpReveal bool
	otpOutput string
	now       = time.Now
)

func init() {
	otpLatestCmd.Flags().BoolVar(&otpReveal, "reveal", false, "print the code in clear")
	otpLatestCmd.Flags().StringVarP(&otpOutput, "output", "o", "text", "output format: text, json or yaml")
	otpCmd.AddCommand(otpLatestCmd)
	rootCmd.AddCommand(otpCmd)
}

type otpView struct {
	Phone      string     `json:"phone" yaml:"phone"`
	Code       string     `json:"code" yaml:"code"`
	State      string     `json:"state" yaml:"state"`
	Attempts   int        `json:"attempts" yaml:"attempts"`
	ExpiresAt  time.Time  `json:"expiresAt" yaml:"expires_at"`
	VerifiedAt *time.Time `json:"verifiedAt,omitempty" yaml:"verified_at,omitempty"`
	CreatedAt  time.Time  `json:"createdAt" yaml:"created_at"`
}

func newOtpView(c *models.OtpCode, reveal bool, at time.Time) otpView {
	code := "******"
	if reveal {
		code = c.Code
	}
	return otpView{
		Phone:      utils.MaskPhone(c.PhoneNumber),
		Code:       code,
		State:      string(c.StateAt(at)),
		Attempts:   c.Attempts,
		ExpiresAt:  c.ExpiresAt.UTC(),
		VerifiedAt: c.VerifiedAt,
		CreatedAt:  c.CreatedAt.UTC(),
	}
}

func runOtpLatest(cmd *cobra.Command, args []string) error {
	phone := utils.NormalizePhone(args[0])
	if !utils.IsE164(phone) {
		return fmt.Errorf("%q is not an E.164 phone number", args[0])
	}
	switch otpOutput {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("unknown output format %q", otpOutput)
	}

	return withStores(cmd.Context(), func(s *Stores) error {
		rec, err := s.OtpCodes.GetLatest(cmd.Context(), phone)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if rec == nil {
			_, _ = fmt.Fprintf(out, "no code on file for %s\n", utils.MaskPhone(phone))
			return nil
		}
		return writeOtpView(out, newOtpView(rec, otpReveal, now()), otpOutput)
	})
}

func writeOtpView(w io.Writer, v otpView, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(v)
	}
	_, err := fmt.Fprintf(w, "phone:    %s\ncode:     %s\nstate:    %s\nattempts: %d/%d\nexpires:  %s\n",
		v.Phone, v.Code, v.State, v.Attempts, utils.MaxOTPAttempts, v.ExpiresAt.Format(time.RFC3339))
	return err
}
