// Copyright (C) 2022 myl7
// SPDX-License-Identifier: Apache-2.0

// Package cryptosign is the default signing/hashing collaborator:
// Ed25519 over a SHA3-256 digest of a gob-encoded payload, generalizing
// the root package's own hash/verifySig pair (crypto.go) from SHAKE256
// to SHA3-256 and from raw bytes to arbitrary gob-encodable values.
package cryptosign

import (
	"bytes"
	"crypto/ed25519"
	"encoding/gob"

	"golang.org/x/crypto/sha3"
)

// Driver signs and verifies digests with a node's own Ed25519 key pair,
// and resolves peer public keys by signer key string. The package-level
// Hash and Verify functions fit txn's DigestFuncSet/PubkeyFuncSet
// function shapes; SCPAdapter builds scp's SCPDriver on top of a Driver.
type Driver struct {
	NodeID     string
	PrivateKey ed25519.PrivateKey
	PublicKeys map[string]ed25519.PublicKey
}

func NewDriver(nodeID string, sk ed25519.PrivateKey, pks map[string]ed25519.PublicKey) *Driver {
	return &Driver{NodeID: nodeID, PrivateKey: sk, PublicKeys: pks}
}

// Hash gob-encodes data and returns its SHA3-256 digest. Panics on a
// value gob cannot encode, matching the teacher's GenSHA256Hash(GobEnc)
// convention of treating a (de)serialization failure as a programmer
// error rather than a recoverable one.
func Hash(data any) []byte {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(data); err != nil {
		panic(err)
	}
	sum := sha3.Sum256(buf.Bytes())
	return sum[:]
}

// Sign signs digest with the driver's own private key.
func (d *Driver) Sign(digest []byte) []byte {
	return ed25519.Sign(d.PrivateKey, digest)
}

// Verify checks sig over digest against pubkey.
func Verify(sig, digest, pubkey []byte) bool {
	if len(pubkey) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pubkey), digest, sig)
}

// VerifyBySignerKey resolves pubkey from d.PublicKeys and calls Verify.
func (d *Driver) VerifyBySignerKey(sig, digest []byte, signerKey string) bool {
	pk, ok := d.PublicKeys[signerKey]
	if !ok {
		return false
	}
	return Verify(sig, digest, pk)
}

// SignerLookup resolves a signer key to raw public key bytes, the shape
// txn.SignerLookup expects.
func (d *Driver) SignerLookup(signerKey string) ([]byte, bool) {
	pk, ok := d.PublicKeys[signerKey]
	if !ok {
		return nil, false
	}
	return []byte(pk), true
}
