// Package cmn provides common low-level types and utilities shared by every
// emulated service: errors, ARNs, id generation, configuration, and the
// tagged-variant JSON representation adapters decode requests into.
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package cmn

import (
	"math/rand"

	"github.com/google/uuid"
	"github.com/teris-io/shortid"
)

// Alphabet for generating short human-readable ids, carried over from the
// upstream shortid default with a couple of easily-confused characters
// swapped out.
const idABC = "-5nZJDft6LuzsjGNpPwY7rQa39vehq4i1cV2FROo8yHSlC0BUEdWbIxMmTgKXAk_"

var sid *shortid.Shortid

// InitIDGen seeds the short-id generator. Call once at process start; the
// seed only needs to differ across processes sharing a data directory.
func InitIDGen(seed uint64) {
	sid = shortid.MustNew(1 /*worker*/, idABC, seed)
}

// GenShortID returns a short, human-readable id suitable for resource names
// that callers may end up eyeballing in logs (request ids, receipt handles).
func GenShortID() string {
	var h, t string
	id := sid.MustGenerate()
	if !isAlpha(id[0]) {
		h = string(rune('A' + rand.Int()%26))
	}
	if c := id[len(id)-1]; c == '-' || c == '_' {
		t = string(rune('a' + rand.Int()%26))
	}
	return h + id + t
}

// GenUUID returns a canonical random UUIDv4, used wherever the emulated
// service's wire format expects one verbatim (S3 version ids, SFN execution
// names, KMS key ids).
func GenUUID() string { return uuid.New().String() }

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
