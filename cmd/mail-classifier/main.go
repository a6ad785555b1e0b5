package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/mail"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/llm-mail-triage/internal/core"
	"github.com/mikey/llm-mail-triage/internal/di"
)

func main() {
	flags := di.ParseFlags()

	container, err := di.BuildCLIContainer(flags)
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run classifies a single RFC822 message against the configured rules
// without touching any mailbox
func run(
	flags *di.CLIFlags,
	logger *zap.Logger,
	gateway *core.LLMGateway,
	service *core.FilterService,
) error {
	defer logger.Sync()

	ctx := context.Background()

	if flags.Check {
		fmt.Printf("Provider: %s\n", flags.Provider)
		if gateway.IsAvailable(ctx) {
			fmt.Printf("LLM availability: ok\n")
			return nil
		}
		fmt.Printf("LLM availability: unavailable\n")
		os.Exit(1)
	}

	msg, err := readMessage(flags, logger)
	if err != nil {
		return err
	}

	// Print message summary
	fmt.Printf("\n=== Message ===\n")
	fmt.Printf("From: %s\n", msg.From())
	fmt.Printf("Subject: %s\n", msg.Subject)
	fmt.Printf("Body length: %d bytes\n", len(msg.Body))

	startTime := time.Now()
	outcome, err := service.FilterMessage(ctx, msg)
	if err != nil {
		logger.Fatal("Failed to classify message", zap.Error(err))
	}
	duration := time.Since(startTime)

	// Print results
	fmt.Printf("\n=== Results ===\n")
	fmt.Printf("Matched: %t\n", outcome.IsMatch)
	fmt.Printf("Confidence: %.4f\n", outcome.Confidence)
	if outcome.MatchedRule != nil {
		fmt.Printf("Rule: %s\n", outcome.MatchedRule.Name)
		fmt.Printf("Action: %s\n", outcome.ActionDescription)
	}
	fmt.Printf("Reason: %s\n", outcome.Reason)
	if outcome.Err != nil {
		fmt.Printf("Action error: %v\n", outcome.Err)
	}
	fmt.Printf("Processing time: %v\n", duration)

	return nil
}

// readMessage parses an RFC822 message from the input file or stdin
func readMessage(flags *di.CLIFlags, logger *zap.Logger) (*core.Message, error) {
	var reader io.Reader
	if flags.InputFile != "" {
		file, err := os.Open(flags.InputFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open input file %s: %w", flags.InputFile, err)
		}
		defer file.Close()
		reader = file
		logger.Info("Reading message from file", zap.String("file", flags.InputFile))
	} else {
		reader = os.Stdin
		logger.Info("Reading message from stdin")
	}

	parsed, err := mail.ReadMessage(bufio.NewReader(reader))
	if err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}

	bodyBytes, err := io.ReadAll(parsed.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read message body: %w", err)
	}

	msg := &core.Message{
		ID:         "stdin",
		Subject:    parsed.Header.Get("Subject"),
		Body:       string(bodyBytes),
		ReceivedAt: time.Now(),
		Unread:     true,
	}
	if addr, err := mail.ParseAddress(parsed.Header.Get("From")); err == nil {
		msg.FromAddr = addr.Address
		msg.FromName = addr.Name
	} else {
		msg.FromAddr = parsed.Header.Get("From")
	}
	return msg, nil
}
