package crypto

import (
	"fmt"
	"math/big"
	"sort"
	"strings"
)

const domainTypeName = "StarkNetDomain"

// TypeMember is one field of a typed-data struct.
type TypeMember struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// TypedData is an off-chain message in the Starknet typed-data format (revision 0).
// Member order inside each type is significant.
type TypedData struct {
	Types       map[string][]TypeMember `json:"types"`
	PrimaryType string                  `json:"primaryType"`
	Domain      map[string]any          `json:"domain"`
	Message     map[string]any          `json:"message"`
}

// MessageHash returns the hash an account signs for td on behalf of account.
func (td *TypedData) MessageHash(account *big.Int) (*big.Int, error) {
	prefix, err := ShortString("StarkNet Message")
	if err != nil {
		return nil, err
	}
	domainHash, err := td.StructHash(domainTypeName, td.Domain)
	if err != nil {
		return nil, fmt.Errorf("failed to hash domain: %w", err)
	}
	msgHash, err := td.StructHash(td.PrimaryType, td.Message)
	if err != nil {
		return nil, fmt.Errorf("failed to hash message: %w", err)
	}
	return PedersenArray(prefix, domainHash, account, msgHash), nil
}

// StructHash hashes value as an instance of typeName.
func (td *TypedData) StructHash(typeName string, value map[string]any) (*big.Int, error) {
	members, ok := td.Types[typeName]
	if !ok {
		return nil, fmt.Errorf("unknown type %q", typeName)
	}
	typeHash, err := td.TypeHash(typeName)
	if err != nil {
		return nil, err
	}

	fields := []*big.Int{typeHash}
	for _, m := range members {
		raw, ok := value[m.Name]
		if !ok {
			return nil, fmt.Errorf("missing field %s.%s", typeName, m.Name)
		}
		v, err := td.encodeValue(m.Type, raw)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s.%s: %w", typeName, m.Name, err)
		}
		fields = append(fields, v)
	}
	return PedersenArray(fields...), nil
}

// TypeHash is sn_keccak of the canonical type encoding.
func (td *TypedData) TypeHash(typeName string) (*big.Int, error) {
	enc, err := td.EncodeType(typeName)
	if err != nil {
		return nil, err
	}
	return Keccak250([]byte(enc)), nil
}

// EncodeType renders Name(field:type,...) followed by referenced struct types in
// alphabetical order.
func (td *TypedData) EncodeType(typeName string) (string, error) {
	if _, ok := td.Types[typeName]; !ok {
		return "", fmt.Errorf("unknown type %q", typeName)
	}

	seen := map[string]bool{typeName: true}
	var deps []string
	var walk func(string)
	walk = func(name string) {
		for _, m := range td.Types[name] {
			t := strings.TrimSuffix(m.Type, "*")
			if _, isStruct := td.Types[t]; isStruct && !seen[t] {
				seen[t] = true
				deps = append(deps, t)
				walk(t)
			}
		}
	}
	walk(typeName)
	sort.Strings(deps)

	var b strings.Builder
	for _, name := range append([]string{typeName}, deps...) {
		b.WriteString(name)
		b.WriteByte('(')
		for i, m := range td.Types[name] {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(m.Name)
			b.WriteByte(':')
			b.WriteString(m.Type)
		}
		b.WriteByte(')')
	}
	return b.String(), nil
}

func (td *TypedData) encodeValue(typ string, raw any) (*big.Int, error) {
	if _, isStruct := td.Types[typ]; isStruct {
		nested, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("expected object for %s", typ)
		}
		return td.StructHash(typ, nested)
	}

	switch typ {
	case "felt", "string", "shortstring", "ContractAddress", "ClassHash", "bool":
		return feltValue(raw)
	case "felt*":
		items, ok := raw.([]any)
		if !ok {
			return nil, fmt.Errorf("expected array for felt*")
		}
		vals := make([]*big.Int, 0, len(items))
		for _, it := range items {
			v, err := feltValue(it)
			if err != nil {
				return nil, err
			}
			vals = append(vals, v)
		}
		return PedersenArray(vals...), nil
	default:
		return nil, fmt.Errorf("unsupported type %q", typ)
	}
}

// feltValue follows the revision 0 rules: numbers and numeric strings are taken as-is,
// any other string is a short string.
func feltValue(raw any) (*big.Int, error) {
	switch v := raw.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case int:
		return big.NewInt(int64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case bool:
		if v {
			return big.NewInt(1), nil
		}
		return big.NewInt(0), nil
	case string:
		if isNumeric(v) {
			return ParseFelt(v)
		}
		return ShortString(v)
	default:
		return nil, fmt.Errorf("unsupported value %T", raw)
	}
}

func isNumeric(s string) bool {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		if len(s) == 2 {
			return false
		}
		for _, c := range s[2:] {
			if !strings.ContainsRune("0123456789abcdefABCDEF", c) {
				return false
			}
		}
		return true
	}
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
