// Copyright (c) 2026 The picosuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package utxomgr provides the wallet's durable ledger: the set of owned
// transaction outputs together with the scan watermark, stored inside a
// walletdb namespace. The two are always committed inside the same database
// transaction so that a crash mid-scan leaves a state a re-scan can safely
// reprocess.
package utxomgr

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcwallet/walletdb"
)

var (
	// ErrNoExist is returned when the store buckets are missing from the
	// given namespace.
	ErrNoExist = errors.New("utxo store does not exist")

	// ErrUnknownOutput is returned when an operation references an
	// outpoint the store has never recorded.
	ErrUnknownOutput = errors.New("unknown output")

	// ErrHeightRewind is returned when an attempt is made to move the
	// scan watermark backwards. The watermark is monotone by contract.
	ErrHeightRewind = errors.New("scan height rewind")

	// ErrData is returned when a stored record cannot be decoded. This
	// indicates database corruption.
	ErrData = errors.New("malformed stored data")
)

var (
	// bucketUtxos holds one record per owned output, keyed by the
	// canonical outpoint encoding.
	bucketUtxos = []byte("utxos")

	// keyLastHeight is the namespace-level key holding the highest block
	// height fully processed by the scanner.
	keyLastHeight = []byte("lastheight")
)

// Utxo describes a single owned transaction output. Records are never
// deleted; spending flips Spent one way, from false to true.
type Utxo struct {
	// OutPoint uniquely identifies the output across the whole chain.
	OutPoint wire.OutPoint

	// Amount is the output value.
	Amount btcutil.Amount

	// Spent reports whether the output has been consumed by a broadcast
	// transaction.
	Spent bool
}

// Store manages the owned output set and the scan watermark within a
// walletdb namespace. Every method takes the namespace bucket explicitly so
// callers decide the database transaction boundaries; the scanner relies on
// this to commit a batch of outputs and its watermark atomically.
type Store struct {
	// birthday is the height reported while the store is empty. Scans
	// start at birthday+1.
	birthday int32
}

// Create creates the buckets required by the store inside the given
// namespace. It is idempotent, so it may be called on every open.
func Create(ns walletdb.ReadWriteBucket) error {
	_, err := ns.CreateBucketIfNotExists(bucketUtxos)
	if err != nil {
		return fmt.Errorf("failed to create utxo bucket: %w", err)
	}

	return nil
}

// Open opens the store from an existing walletdb namespace, returning
// ErrNoExist if Create has never run against it. The birthday height is
// reported by LastHeight until the first watermark is written.
func Open(ns walletdb.ReadBucket, birthday int32) (*Store, error) {
	if ns.NestedReadBucket(bucketUtxos) == nil {
		return nil, ErrNoExist
	}

	return &Store{birthday: birthday}, nil
}

// LastHeight returns the highest block height fully processed by the
// scanner, or the store's birthday height when no scan has completed yet.
func (s *Store) LastHeight(ns walletdb.ReadBucket) (int32, error) {
	v := ns.Get(keyLastHeight)
	if v == nil {
		return s.birthday, nil
	}

	if len(v) != 4 {
		return 0, fmt.Errorf("%w: last height value has %d bytes",
			ErrData, len(v))
	}

	return int32(binary.BigEndian.Uint32(v)), nil
}

// PutLastHeight advances the scan watermark. Lowering the watermark is
// rejected with ErrHeightRewind; storing the current value again is allowed
// so an idempotent re-scan of the same range commits cleanly.
func (s *Store) PutLastHeight(ns walletdb.ReadWriteBucket,
	height int32) error {

	last, err := s.LastHeight(ns)
	if err != nil {
		return err
	}

	if height < last {
		return fmt.Errorf("%w: %d < %d", ErrHeightRewind, height, last)
	}

	var v [4]byte
	binary.BigEndian.PutUint32(v[:], uint32(height))

	if err := ns.Put(keyLastHeight, v[:]); err != nil {
		return fmt.Errorf("failed to store last height: %w", err)
	}

	return nil
}

// Upsert records an owned output. If the outpoint is already present the
// record is left untouched, in particular its spent flag, which is what
// makes reprocessing an already-scanned block a no-op.
func (s *Store) Upsert(ns walletdb.ReadWriteBucket, op wire.OutPoint,
	amount btcutil.Amount) error {

	utxos := ns.NestedReadWriteBucket(bucketUtxos)
	if utxos == nil {
		return ErrNoExist
	}

	k := CanonicalOutPoint(&op.Hash, op.Index)
	if utxos.Get(k) != nil {
		log.Tracef("Ignoring existing output %v", op)
		return nil
	}

	if err := utxos.Put(k, valueUtxo(amount, false)); err != nil {
		return fmt.Errorf("failed to store output %v: %w", op, err)
	}

	log.Debugf("Recorded output %v worth %v", op, amount)

	return nil
}

// SetSpent marks a recorded output as consumed. Marking an already-spent
// output succeeds silently; an unknown outpoint fails with ErrUnknownOutput.
func (s *Store) SetSpent(ns walletdb.ReadWriteBucket, op wire.OutPoint) error {
	utxos := ns.NestedReadWriteBucket(bucketUtxos)
	if utxos == nil {
		return ErrNoExist
	}

	k := CanonicalOutPoint(&op.Hash, op.Index)

	v := utxos.Get(k)
	if v == nil {
		return fmt.Errorf("%w: %v", ErrUnknownOutput, op)
	}

	amount, spent, err := readUtxoValue(v)
	if err != nil {
		return err
	}
	if spent {
		return nil
	}

	if err := utxos.Put(k, valueUtxo(amount, true)); err != nil {
		return fmt.Errorf("failed to mark output %v spent: %w", op, err)
	}

	return nil
}

// UnspentOutputs returns all owned outputs whose spent flag is unset. The
// order follows the bucket's key order and is stable within a single read.
func (s *Store) UnspentOutputs(ns walletdb.ReadBucket) ([]Utxo, error) {
	var unspent []Utxo

	err := s.forEachUtxo(ns, func(u Utxo) {
		if !u.Spent {
			unspent = append(unspent, u)
		}
	})
	if err != nil {
		return nil, err
	}

	return unspent, nil
}

// Balance returns the sum of all unspent output values. The sum is computed
// from the records on every call; there is no cached aggregate to drift.
func (s *Store) Balance(ns walletdb.ReadBucket) (btcutil.Amount, error) {
	var total btcutil.Amount

	err := s.forEachUtxo(ns, func(u Utxo) {
		if !u.Spent {
			total += u.Amount
		}
	})
	if err != nil {
		return 0, err
	}

	return total, nil
}

// forEachUtxo decodes every stored output record and hands it to f.
func (s *Store) forEachUtxo(ns walletdb.ReadBucket, f func(Utxo)) error {
	utxos := ns.NestedReadBucket(bucketUtxos)
	if utxos == nil {
		return ErrNoExist
	}

	return utxos.ForEach(func(k, v []byte) error {
		var op wire.OutPoint
		if err := readCanonicalOutPoint(k, &op); err != nil {
			return err
		}

		amount, spent, err := readUtxoValue(v)
		if err != nil {
			return err
		}

		f(Utxo{OutPoint: op, Amount: amount, Spent: spent})

		return nil
	})
}

// CanonicalOutPoint returns the canonical serialization of an outpoint used
// as a bucket key: the 32-byte transaction hash followed by the big-endian
// output index.
func CanonicalOutPoint(txHash *chainhash.Hash, index uint32) []byte {
	var k [36]byte
	copy(k[:32], txHash[:])
	binary.BigEndian.PutUint32(k[32:36], index)

	return k[:]
}

// readCanonicalOutPoint decodes a bucket key written by CanonicalOutPoint.
func readCanonicalOutPoint(k []byte, op *wire.OutPoint) error {
	if len(k) != 36 {
		return fmt.Errorf("%w: outpoint key has %d bytes", ErrData,
			len(k))
	}

	copy(op.Hash[:], k[:32])
	op.Index = binary.BigEndian.Uint32(k[32:36])

	return nil
}

// valueUtxo serializes an output record value: the 8-byte big-endian amount
// followed by a 1-byte spent flag.
func valueUtxo(amount btcutil.Amount, spent bool) []byte {
	var v [9]byte
	binary.BigEndian.PutUint64(v[:8], uint64(amount))
	if spent {
		v[8] = 1
	}

	return v[:]
}

// readUtxoValue decodes a record value written by valueUtxo.
func readUtxoValue(v []byte) (btcutil.Amount, bool, error) {
	if len(v) != 9 {
		return 0, false, fmt.Errorf("%w: utxo value has %d bytes",
			ErrData, len(v))
	}

	amount := btcutil.Amount(binary.BigEndian.Uint64(v[:8]))

	return amount, v[8] != 0, nil
}
