package offsite

import (
	"errors"
	"log/slog"

	"golang.org/x/crypto/ssh"
)

// checkPrivateKey logs whether key parses as an SSH private key. The key is
// installed either way.
func checkPrivateKey(log *slog.Logger, key string) {
	signer, err := ssh.ParsePrivateKey([]byte(key))

	var missing *ssh.PassphraseMissingError
	switch {
	case errors.As(err, &missing):
		log.Warn("Rsync private key is passphrase protected, rsync clients will not be able to use it")
	case err != nil:
		log.Warn("Rsync private key does not parse as an SSH private key", "err", err)
	default:
		log.Info("Loaded rsync private key",
			slog.String("type", signer.PublicKey().Type()),
			slog.String("fingerprint", ssh.FingerprintSHA256(signer.PublicKey())))
	}
}
