package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	qrcode "github.com/skip2/go-qrcode"

	"ms-scanning/internal/scan/verifier"
)

// credgen signs a ticket token with the venue's shared secret and renders
// it as a QR PNG, for provisioning test credentials and reprints at the
// box office.
func main() {
	token := flag.String("token", "", "ticket token to sign (default: random UUID)")
	out := flag.String("out", "", "write a QR PNG to this path instead of printing the payload")
	size := flag.Int("size", 256, "QR image size in pixels")
	flag.Parse()

	_ = godotenv.Load()

	secret := os.Getenv("SCAN_SIGNING_SECRET")
	v, err := verifier.New(secret)
	if err != nil {
		fmt.Fprintf(os.Stderr, "credgen: %v\n", err)
		os.Exit(1)
	}

	t := *token
	if t == "" {
		t = uuid.NewString()
	}

	payload, err := v.Encode(t, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "credgen: encode payload: %v\n", err)
		os.Exit(1)
	}

	if *out == "" {
		fmt.Println(payload)
		return
	}

	if err := qrcode.WriteFile(payload, qrcode.Medium, *size, *out); err != nil {
		fmt.Fprintf(os.Stderr, "credgen: write QR: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("token %s written to %s\n", t, *out)
}
