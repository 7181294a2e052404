package chain

import (
	"encoding/json"
	"fmt"

	"github.com/jmerrifield20/ProvenanceLedger/internal/ledger"
)

// Signer produces the authenticity token stored on each block.
type Signer interface {
	Sign(role ledger.Role) string
}

// MockSigner derives a signature from the role alone. It proves nothing;
// it stands in for an MSP signature so the block layout matches a real one.
type MockSigner struct {
	Hasher Hasher
}

// Sign implements Signer. The result looks like "SIG_SUPPLIER_1a2b3c4d".
func (s MockSigner) Sign(role ledger.Role) string {
	h := s.Hasher
	if h == nil {
		h = FNVHasher{}
	}
	digest := h.Hash(string(role))
	if len(digest) > 8 {
		digest = digest[:8]
	}
	return "SIG_" + string(role) + "_" + digest
}

// Builder assembles transaction blocks.
type Builder struct {
	hasher Hasher
	signer Signer
	newID  func() (string, error)
}

// NewBuilder returns a Builder. Nil arguments select FNVHasher, a MockSigner
// over the same hasher and NewTxID.
func NewBuilder(h Hasher, s Signer, newID func() (string, error)) *Builder {
	if h == nil {
		h = FNVHasher{}
	}
	if s == nil {
		s = MockSigner{Hasher: h}
	}
	if newID == nil {
		newID = NewTxID
	}
	return &Builder{hasher: h, signer: s, newID: newID}
}

// Hasher returns the hasher used for block hashes.
func (b *Builder) Hasher() Hasher { return b.hasher }

// Build creates the block for one accepted transition. The hash and signature
// depend only on the arguments, so identical inputs and timestamp yield an
// identical block apart from the tx id.
func (b *Builder) Build(role ledger.Role, functionName string, inputs map[string]string, previousHash string, now int64) (ledger.Block, error) {
	txID, err := b.newID()
	if err != nil {
		return ledger.Block{}, fmt.Errorf("generate tx id: %w", err)
	}
	blk := ledger.Block{
		TxID:         txID,
		Timestamp:    now,
		FunctionName: functionName,
		InvokerRole:  role,
		Inputs:       copyInputs(inputs),
		Signature:    b.signer.Sign(role),
		PreviousHash: previousHash,
	}
	blk.CurrentHash, err = HashBlock(b.hasher, &blk)
	if err != nil {
		return ledger.Block{}, err
	}
	return blk, nil
}

// HashBlock computes the content hash of blk over
// "role:function:inputs:timestamp:previousHash". Inputs are serialised as JSON,
// which orders map keys, so the string is canonical.
func HashBlock(h Hasher, blk *ledger.Block) (string, error) {
	inputs := blk.Inputs
	if inputs == nil {
		inputs = map[string]string{}
	}
	raw, err := json.Marshal(inputs)
	if err != nil {
		return "", fmt.Errorf("marshal inputs: %w", err)
	}
	data := fmt.Sprintf("%s:%s:%s:%d:%s",
		blk.InvokerRole, blk.FunctionName, raw, blk.Timestamp, blk.PreviousHash,
	)
	return h.Hash(data), nil
}

func copyInputs(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
