// Command landlockctl is the operator companion to the server: it generates
// ed25519 identity key pairs and mints the single-use bearer tokens the API
// requires on mutating endpoints.
package main

import (
	"flag"
	"fmt"
	"os"

	"landlock/internal/tokens"
	"landlock/pkg/keys"
)

const usage = `usage: landlockctl <command> [flags]

commands:
  keygen  generate an ed25519 key pair and write the private key to a file
  token   mint a bearer token signed by a private key
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("missing command")
	}
	switch args[0] {
	case "keygen":
		return keygen(args[1:])
	case "token":
		return token(args[1:])
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func keygen(args []string) error {
	fs := flag.NewFlagSet("keygen", flag.ContinueOnError)
	out := fs.String("out", "landlock.key", "path to write the hex-encoded private key")
	if err := fs.Parse(args); err != nil {
		return err
	}

	pub, priv, err := keys.Generate()
	if err != nil {
		return err
	}
	if err := keys.SavePrivateKey(*out, priv); err != nil {
		return err
	}
	fmt.Printf("public key: %s\nprivate key written to %s\n", pub, *out)
	return nil
}

func token(args []string) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	keyPath := fs.String("key", "landlock.key", "path to the hex-encoded private key")
	ttl := fs.Duration("ttl", tokens.DefaultTTL, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}

	priv, err := keys.LoadPrivateKey(*keyPath)
	if err != nil {
		return err
	}
	signed, err := tokens.Mint(priv, *ttl)
	if err != nil {
		return err
	}
	fmt.Println(signed)
	return nil
}
