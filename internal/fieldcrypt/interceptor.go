// Package fieldcrypt seals and opens PII fields of storage structs on their way to and
// from the database.
//
// Fields opt in with a struct tag:
//
//	type Customer struct {
//		FullName  string  `pii:"encrypt"`
//		Email     string  `pii:"encrypt,hash=EmailHash"`
//		EmailHash string
//		Phone     *string `pii:"encrypt"`
//	}
//
// Seal encrypts tagged fields unless they already hold an envelope and fills hash
// sidecars from the plaintext. Open decrypts tagged fields, leaving legacy plaintext
// and undecryptable values untouched.
package fieldcrypt

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"reflect"
	"strings"
	"sync"

	cryptoService "github.com/allisson/fieldcrypt/internal/crypto/service"
	"github.com/allisson/fieldcrypt/internal/errors"
)

// TagName is the struct tag key read by the Interceptor.
const TagName = "pii"

var (
	// ErrInvalidTarget indicates Seal or Open received something other than a non-nil
	// pointer to a struct.
	ErrInvalidTarget = errors.Wrap(errors.ErrInvalidInput, "target must be a non-nil pointer to a struct")

	// ErrInvalidTag indicates a malformed pii tag or a tag on an unsupported field.
	ErrInvalidTag = errors.Wrap(errors.ErrInvalidInput, "invalid pii tag")
)

var stringType = reflect.TypeFor[string]()

// Interceptor applies the field cipher to tagged struct fields.
type Interceptor struct {
	cipher cryptoService.FieldCipher
	hasher cryptoService.LookupHasher
	plans  sync.Map // reflect.Type -> *structPlan
}

// NewInterceptor creates an Interceptor.
func NewInterceptor(cipher cryptoService.FieldCipher, hasher cryptoService.LookupHasher) *Interceptor {
	return &Interceptor{cipher: cipher, hasher: hasher}
}

type fieldPlan struct {
	name      string
	index     []int
	pointer   bool
	hashIndex []int
}

type structPlan struct {
	fields []fieldPlan
}

// Seal encrypts every tagged field of the struct ptr points to.
//
// Fields are updated only after every value was encrypted, so a failure leaves the
// struct unchanged.
func (i *Interceptor) Seal(ctx context.Context, ptr any) error {
	target, plan, err := i.resolve(ptr)
	if err != nil {
		return err
	}

	type update struct {
		field reflect.Value
		value string
	}
	updates := make([]update, 0, len(plan.fields)*2)

	for _, fp := range plan.fields {
		field, ok := fp.value(target)
		if !ok {
			if fp.hashIndex != nil {
				updates = append(updates, update{target.FieldByIndex(fp.hashIndex), ""})
			}
			continue
		}

		current := field.String()
		if fp.hashIndex != nil && !i.cipher.LooksLikeEnvelope(current) {
			updates = append(updates, update{target.FieldByIndex(fp.hashIndex), i.hasher.Hash(current)})
		}

		sealed, err := i.cipher.EncryptIfNeeded(current)
		if err != nil {
			return fmt.Errorf("failed to seal field %s: %w", fp.name, err)
		}
		updates = append(updates, update{field, sealed})
	}

	for _, u := range updates {
		u.field.SetString(u.value)
	}
	return nil
}

// Open decrypts every tagged field of the struct ptr points to.
//
// Values that fail to decrypt are left as stored; only configuration errors are
// returned.
func (i *Interceptor) Open(ctx context.Context, ptr any) error {
	target, plan, err := i.resolve(ptr)
	if err != nil {
		return err
	}

	opened := make([]string, len(plan.fields))
	fields := make([]reflect.Value, len(plan.fields))
	for n, fp := range plan.fields {
		field, ok := fp.value(target)
		if !ok {
			continue
		}
		value, err := i.cipher.DecryptIfNeeded(ctx, field.String())
		if err != nil {
			return fmt.Errorf("failed to open field %s: %w", fp.name, err)
		}
		fields[n], opened[n] = field, value
	}

	for n, field := range fields {
		if field.IsValid() {
			field.SetString(opened[n])
		}
	}
	return nil
}

// Value encrypts v for use as a database/sql query argument.
func (i *Interceptor) Value(v string) (driver.Value, error) {
	sealed, err := i.cipher.EncryptIfNeeded(v)
	if err != nil {
		return nil, err
	}
	return sealed, nil
}

// Scanner returns a sql.Scanner that decrypts the scanned column into dst.
// SQL NULL scans as "".
func (i *Interceptor) Scanner(ctx context.Context, dst *string) sql.Scanner {
	return &scanner{ctx: ctx, cipher: i.cipher, dst: dst}
}

type scanner struct {
	ctx    context.Context
	cipher cryptoService.FieldCipher
	dst    *string
}

func (s *scanner) Scan(src any) error {
	var stored string
	switch v := src.(type) {
	case nil:
		*s.dst = ""
		return nil
	case string:
		stored = v
	case []byte:
		stored = string(v)
	default:
		return fmt.Errorf("cannot scan %T into encrypted string", src)
	}

	value, err := s.cipher.DecryptIfNeeded(s.ctx, stored)
	if err != nil {
		return err
	}
	*s.dst = value
	return nil
}

// value returns the settable string behind the field, or false for a nil *string.
func (fp fieldPlan) value(target reflect.Value) (reflect.Value, bool) {
	field := target.FieldByIndex(fp.index)
	if !fp.pointer {
		return field, true
	}
	if field.IsNil() {
		return reflect.Value{}, false
	}
	return field.Elem(), true
}

func (i *Interceptor) resolve(ptr any) (reflect.Value, *structPlan, error) {
	rv := reflect.ValueOf(ptr)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return reflect.Value{}, nil, ErrInvalidTarget
	}
	target := rv.Elem()

	if cached, ok := i.plans.Load(target.Type()); ok {
		return target, cached.(*structPlan), nil
	}
	plan, err := buildPlan(target.Type())
	if err != nil {
		return reflect.Value{}, nil, err
	}
	actual, _ := i.plans.LoadOrStore(target.Type(), plan)
	return target, actual.(*structPlan), nil
}

func buildPlan(t reflect.Type) (*structPlan, error) {
	plan := &structPlan{}

	for _, sf := range reflect.VisibleFields(t) {
		tag, ok := sf.Tag.Lookup(TagName)
		if !ok || tag == "-" {
			continue
		}
		if !sf.IsExported() || throughPointer(t, sf.Index) {
			return nil, fmt.Errorf("%w: field %s is not reachable", ErrInvalidTag, sf.Name)
		}

		fp := fieldPlan{name: sf.Name, index: sf.Index}
		switch {
		case sf.Type == stringType:
		case sf.Type.Kind() == reflect.Pointer && sf.Type.Elem() == stringType:
			fp.pointer = true
		default:
			return nil, fmt.Errorf("%w: field %s must be string or *string", ErrInvalidTag, sf.Name)
		}

		opts := strings.Split(tag, ",")
		if opts[0] != "encrypt" {
			return nil, fmt.Errorf("%w: field %s: unknown action %q", ErrInvalidTag, sf.Name, opts[0])
		}
		for _, opt := range opts[1:] {
			name, found := strings.CutPrefix(opt, "hash=")
			if !found || name == "" {
				return nil, fmt.Errorf("%w: field %s: unknown option %q", ErrInvalidTag, sf.Name, opt)
			}
			hashField, ok := t.FieldByName(name)
			if !ok || hashField.Type != stringType || !hashField.IsExported() ||
				throughPointer(t, hashField.Index) {
				return nil, fmt.Errorf("%w: field %s: hash field %s must be an exported string", ErrInvalidTag, sf.Name, name)
			}
			fp.hashIndex = hashField.Index
		}

		plan.fields = append(plan.fields, fp)
	}

	return plan, nil
}

// throughPointer reports whether reaching index from t dereferences an embedded pointer.
func throughPointer(t reflect.Type, index []int) bool {
	for _, n := range index[:len(index)-1] {
		ft := t.Field(n).Type
		if ft.Kind() == reflect.Pointer {
			return true
		}
		t = ft
	}
	return false
}
