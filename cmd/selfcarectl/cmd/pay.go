package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"go.pilab.hu/selfcare/domain"
	"go.pilab.hu/selfcare/log"
	"go.pilab.hu/selfcare/payment"
	"go.pilab.hu/selfcare/payment/surface"
)

var payAmount float64

var payCmd = &cobra.Command{
	Use:   "pay",
	Short: "Make an account payment through the hosted redirect flow",
	Long: `Creates a payment on the server, serves the processor redirect form on a
loopback address, and waits for the flow to resolve. Open the printed URL in
a browser to complete the payment.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		state, err := app.manager.Bootstrap(ctx)
		if err != nil {
			return err
		}
		if state != domain.SessionAuthenticated {
			return fmt.Errorf("not logged in, run 'selfcarectl auth login' first")
		}
		profile, _ := app.manager.Profile()

		outcomes := make(chan domain.PaymentOutcome, 1)
		ctrl := payment.NewController(app.gateway,
			payment.WithResolveDelay(cfg.ResolveDelay()),
			payment.WithRuleTable(payment.NewRuleTable(cfg.ProcessorDomain)))
		app.manager.BindPaymentCanceler(ctrl)

		srv := surface.NewServer(ctrl)
		if err := srv.Start(cfg.SurfaceAddr); err != nil {
			return fmt.Errorf("failed to start payment surface: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		sess, err := ctrl.Start(ctx, payAmount, profile.Email, func(out domain.PaymentOutcome) {
			outcomes <- out
		})
		if err != nil {
			return fmt.Errorf("failed to start payment: %w", err)
		}
		if err := srv.Present(sess); err != nil {
			return fmt.Errorf("failed to present payment form: %w", err)
		}
		payLog := appLogger.With(log.Fields{"session_id": sess.ID})
		payLog.Info(ctx, "payment session presented", log.Fields{
			"payment_id": sess.ProviderPaymentID,
			"amount":     sess.Amount,
		})

		fmt.Printf("Payment of R%.2f created (id %s).\n", sess.Amount, sess.ProviderPaymentID)
		fmt.Printf("Open the following URL in your browser to complete it:\n\n  %s\n\n", srv.URL())
		fmt.Println("Waiting for the payment to resolve (Ctrl-C to abort)...")

		var out domain.PaymentOutcome
		select {
		case out = <-outcomes:
		case <-ctx.Done():
			ctrl.Cancel()
			out = <-outcomes
		}
		payLog.Info(ctx, "payment resolved", log.Fields{
			"status": string(out.Status),
			"reason": out.Reason,
		})

		switch out.Status {
		case domain.OutcomeSuccess:
			fmt.Printf("Payment successful (reference %s).\n", out.ExternalPaymentID)
			if status, err := app.gateway.PaymentStatus(ctx, sess.ProviderPaymentID); err == nil {
				fmt.Printf("Server reports status %q for R%.2f.\n", status.Status, status.Amount)
			}
		case domain.OutcomeCancelled:
			fmt.Println("Payment cancelled.")
		case domain.OutcomeFailed:
			fmt.Printf("Payment failed: %s\n", out.Reason)
		}
		return nil
	},
}

func init() {
	payCmd.Flags().Float64Var(&payAmount, "amount", 0, "payment amount in rand")
	_ = payCmd.MarkFlagRequired("amount")
	rootCmd.AddCommand(payCmd)
}
