package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/softwareparlat/main/internal/modules/mercadopago"
)

type webhookPayload struct {
	Action string `json:"action,omitempty"`
	Type   string `json:"type"`
	Data   struct {
		ID string `json:"id"`
	} `json:"data"`
}

func main() {
	url := flag.String("url", "http://localhost:8080/api/webhooks/mercadopago", "Webhook URL")
	secret := flag.String("secret", os.Getenv("MP_WEBHOOK_SECRET"), "Webhook signing secret (empty sends unsigned)")
	paymentID := flag.String("payment-id", "", "Provider payment id (data.id)")
	eventType := flag.String("type", "payment", "Notification type")
	action := flag.String("action", "payment.updated", "Notification action")
	dryRun := flag.Bool("dry-run", false, "Only print headers and body, don't send")

	flag.Parse()

	if *paymentID == "" {
		fmt.Fprintf(os.Stderr, "Error: -payment-id is required\n")
		os.Exit(1)
	}

	payload := webhookPayload{Action: *action, Type: *eventType}
	payload.Data.ID = *paymentID

	body, err := json.Marshal(payload)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling payload: %v\n", err)
		os.Exit(1)
	}

	requestID := uuid.NewString()
	var sigHeader string
	if *secret != "" {
		ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
		sigHeader = mercadopago.SignatureHeader(*secret, requestID, *paymentID, ts)
	}

	fmt.Printf("X-Request-Id: %s\n", requestID)
	if sigHeader != "" {
		fmt.Printf("X-Signature: %s\n", sigHeader)
	}
	fmt.Printf("Body: %s\n", string(body))

	if *dryRun {
		fmt.Println("\n[DRY RUN] Not sending request")
		return
	}

	fmt.Printf("\nSending to %s...\n", *url)
	req, err := http.NewRequest(http.MethodPost, *url, bytes.NewReader(body))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating request: %v\n", err)
		os.Exit(1)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", requestID)
	if sigHeader != "" {
		req.Header.Set("X-Signature", sigHeader)
	}

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error sending request: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	fmt.Printf("Status: %d\n", resp.StatusCode)
	fmt.Printf("Response: %s\n", string(respBody))

	if resp.StatusCode != http.StatusOK {
		os.Exit(1)
	}
}
