package chain

import (
	"fmt"

	"github.com/bulletinlabs/bulletind/content"
)

func (p *Pallet) authorizeAccount(origin Origin, who AccountID, transactions uint32, bytes uint64) error {
	if !origin.IsAuthorizer() {
		return ErrBadOrigin
	}
	if _, ok := p.accountAuths[who]; !ok {
		p.providers.IncProviders(who)
	}
	p.accountAuths[who] = Authorization{
		Remaining: AuthorizationExtent{Transactions: transactions, Bytes: bytes},
		ExpiresAt: p.height + p.cfg.AuthorizationPeriod,
	}
	p.emit(AccountAuthorizedEvent{Who: who, Transactions: transactions, Bytes: bytes})
	return nil
}

func (p *Pallet) authorizePreimage(origin Origin, h content.ContentHash, maxSize uint64) error {
	if !origin.IsAuthorizer() {
		return ErrBadOrigin
	}
	p.preimageAuths[h] = Authorization{
		Remaining: AuthorizationExtent{Transactions: 1, Bytes: maxSize},
		MaxSize:   maxSize,
		ExpiresAt: p.height + p.cfg.AuthorizationPeriod,
	}
	p.emit(PreimageAuthorizedEvent{ContentHash: h, MaxSize: maxSize})
	return nil
}

func (p *Pallet) refreshAccountAuthorization(origin Origin, who AccountID) error {
	if !origin.IsAuthorizer() {
		return ErrBadOrigin
	}
	auth, ok := p.accountAuths[who]
	if !ok {
		return ErrAuthorizationNotFound
	}
	auth.ExpiresAt = p.height + p.cfg.AuthorizationPeriod
	p.accountAuths[who] = auth
	p.emit(AccountAuthorizationRefreshedEvent{Who: who})
	return nil
}

func (p *Pallet) refreshPreimageAuthorization(origin Origin, h content.ContentHash) error {
	if !origin.IsAuthorizer() {
		return ErrBadOrigin
	}
	auth, ok := p.preimageAuths[h]
	if !ok {
		return ErrAuthorizationNotFound
	}
	auth.ExpiresAt = p.height + p.cfg.AuthorizationPeriod
	p.preimageAuths[h] = auth
	p.emit(PreimageAuthorizationRefreshedEvent{ContentHash: h})
	return nil
}

func (p *Pallet) removeExpiredAccountAuthorization(who AccountID) error {
	auth, ok := p.accountAuths[who]
	if !ok {
		return ErrAuthorizationNotFound
	} else if p.height < auth.ExpiresAt {
		return ErrAuthorizationNotExpired
	}
	delete(p.accountAuths, who)
	p.providers.DecProviders(who)
	p.emit(ExpiredAccountAuthorizationRemovedEvent{Who: who})
	return nil
}

func (p *Pallet) removeExpiredPreimageAuthorization(h content.ContentHash) error {
	auth, ok := p.preimageAuths[h]
	if !ok {
		return ErrAuthorizationNotFound
	} else if p.height < auth.ExpiresAt {
		return ErrAuthorizationNotExpired
	}
	delete(p.preimageAuths, h)
	p.emit(ExpiredPreimageAuthorizationRemovedEvent{ContentHash: h})
	return nil
}

// debitPreimage debits the preimage authorization for h, if one exists and
// covers size bytes. It reports whether the debit happened.
func (p *Pallet) debitPreimage(h content.ContentHash, size uint64) bool {
	auth, ok := p.preimageAuths[h]
	if !ok || p.height >= auth.ExpiresAt {
		return false
	}
	if auth.Remaining.Transactions < 1 || auth.Remaining.Bytes < size || size > auth.MaxSize {
		return false
	}
	auth.Remaining.Transactions--
	auth.Remaining.Bytes -= size
	if auth.Remaining.IsZero() {
		delete(p.preimageAuths, h)
	} else {
		p.preimageAuths[h] = auth
	}
	return true
}

// debitAccount debits who's account authorization, if it covers size bytes.
func (p *Pallet) debitAccount(who AccountID, size uint64) bool {
	auth, ok := p.accountAuths[who]
	if !ok || p.height >= auth.ExpiresAt {
		return false
	}
	if auth.Remaining.Transactions < 1 || auth.Remaining.Bytes < size {
		return false
	}
	auth.Remaining.Transactions--
	auth.Remaining.Bytes -= size
	if auth.Remaining.IsZero() {
		delete(p.accountAuths, who)
		p.providers.DecProviders(who)
	} else {
		p.accountAuths[who] = auth
	}
	return true
}

// debit runs the pre-dispatch authorization policy for a store or renew
// call. Unsigned calls require a covering preimage authorization; signed
// calls prefer the preimage authorization and fall back to the signer's
// account budget.
func (p *Pallet) debit(origin Origin, h content.ContentHash, size uint64) error {
	if who, ok := origin.Account(); ok {
		if p.debitPreimage(h, size) || p.debitAccount(who, size) {
			return nil
		}
		return fmt.Errorf("account %x: %w", who[:4], ErrInsufficientAuthorization)
	}
	if p.debitPreimage(h, size) {
		return nil
	}
	return fmt.Errorf("unsigned: %w", ErrInsufficientAuthorization)
}

// AccountAuthorization returns the live authorization for who.
func (p *Pallet) AccountAuthorization(who AccountID) (Authorization, bool) {
	auth, ok := p.accountAuths[who]
	return auth, ok
}

// PreimageAuthorization returns the live authorization for h.
func (p *Pallet) PreimageAuthorization(h content.ContentHash) (Authorization, bool) {
	auth, ok := p.preimageAuths[h]
	return auth, ok
}
