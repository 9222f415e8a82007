package replica

import (
	"errors"
	"fmt"
	"strings"

	"ReplicatedChat/chatdb"
	"ReplicatedChat/models"
)

// Every mutating handler follows the same shape: apply the operation on
// the local store first, so the response reflects the true local
// outcome, then forward the identical request to the backups when
// acting as primary. The forwarded call is applied by the backup
// through this very handler, whose store operations are idempotently
// safe to re-receive (a duplicate CreateAccount yields a duplicate
// error there, not corruption).

func (r *Replica) CreateAccountRPC(req models.Credentials, res *models.ServerResponse) error {
	err := r.store.CreateAccount(req.Username, req.Password)
	switch {
	case err == nil:
		res.Message = fmt.Sprintf("Account creation success: '%s' added.", req.Username)
	case errors.Is(err, chatdb.ErrDuplicateUsername):
		res.Message = fmt.Sprintf("Account creation error: username '%s' already in use.", req.Username)
		res.Error = true
	default:
		r.logger.Errorf("CreateAccount store failure: %v", err)
		res.Message = "Account creation error: something went wrong, please try again."
		res.Error = true
	}

	r.propagate("CreateAccountRPC", req)
	return nil
}

func (r *Replica) DeleteAccountRPC(req models.Credentials, res *models.ServerResponse) error {
	err := r.store.DeleteAccount(req.Username, req.Password)
	switch {
	case err == nil:
		res.Message = fmt.Sprintf("Account deletion success: '%s' deleted.", req.Username)
	case errors.Is(err, chatdb.ErrNotFound):
		res.Message = fmt.Sprintf("Account deletion error: username '%s' not found.", req.Username)
		res.Error = true
	default:
		r.logger.Errorf("DeleteAccount store failure: %v", err)
		res.Message = "Account deletion error: something went wrong, please try again."
		res.Error = true
	}

	r.propagate("DeleteAccountRPC", req)
	return nil
}

func (r *Replica) LoginRPC(req models.Credentials, res *models.ServerResponse) error {
	err := r.store.Login(req.Username, req.Password)
	switch {
	case err == nil:
		res.Message = fmt.Sprintf("Login success: '%s' logged in. Welcome!", req.Username)
	case errors.Is(err, chatdb.ErrUnknownUser):
		res.Message = fmt.Sprintf("Login error: username '%s' not found.", req.Username)
		res.Error = true
	case errors.Is(err, chatdb.ErrBadPassword):
		res.Message = fmt.Sprintf("Login error: incorrect password for '%s'.", req.Username)
		res.Error = true
	case errors.Is(err, chatdb.ErrAlreadyLoggedIn):
		res.Message = fmt.Sprintf("Login error: '%s' is already logged in. Please logout first.", req.Username)
		res.Error = true
	default:
		r.logger.Errorf("Login store failure: %v", err)
		res.Message = "Login error: something went wrong, please try again."
		res.Error = true
	}

	r.propagate("LoginRPC", req)
	return nil
}

func (r *Replica) LogoutRPC(req models.Credentials, res *models.ServerResponse) error {
	err := r.store.Logout(req.Username)
	if err != nil {
		r.logger.Errorf("Logout store failure: %v", err)
		res.Message = "Logout error: something went wrong, please try again."
		res.Error = true
	} else {
		res.Message = fmt.Sprintf("Logout success: '%s' logged out. Goodbye!", req.Username)
	}

	r.propagate("LogoutRPC", req)
	return nil
}

// ListAccountsRPC is read-only and never propagated. An invalid pattern
// is reported as an RPC fault, which reaches the caller as a server
// error on a live connection, not as an unreachable endpoint.
func (r *Replica) ListAccountsRPC(req models.SearchTerm, res *models.AccountList) error {
	usernames, err := r.store.ListAccounts(req.Pattern)
	if err != nil {
		return err
	}
	res.Usernames = strings.Join(usernames, " ")
	return nil
}

func (r *Replica) SendMessageRPC(req models.MessageInfo, res *models.ServerResponse) error {
	err := r.store.SendMessage(req.Source, req.Destination, req.Text)
	switch {
	case err == nil:
		res.Message = fmt.Sprintf("Send success: message sent to '%s'.", req.Destination)
	case errors.Is(err, chatdb.ErrSenderNotLoggedIn):
		res.Message = "Send error: you must be logged in to send messages."
		res.Error = true
	case errors.Is(err, chatdb.ErrUnknownDestination):
		res.Message = fmt.Sprintf("Send error: destination account '%s' does not exist.", req.Destination)
		res.Error = true
	default:
		r.logger.Errorf("SendMessage store failure: %v", err)
		res.Message = "Send error: something went wrong, please try again."
		res.Error = true
	}

	r.propagate("SendMessageRPC", req)
	return nil
}

// FetchMessagesRPC blocks until the account has pending messages, then
// claims and returns them. The client re-issues this call in a loop to
// form its message stream; Active=false ends the stream after logout or
// account deletion. Delivery is local to this replica's store and is
// never propagated.
func (r *Replica) FetchMessagesRPC(req models.ListenArguments, res *models.MessageBatch) error {
	batch, active, err := r.store.NextBatch(req.Username)
	if err != nil {
		return err
	}
	res.Active = active
	for _, m := range batch {
		res.Messages = append(res.Messages, models.MessageInfo{
			Source:      m.Source,
			Destination: m.Destination,
			Text:        m.Text,
		})
	}
	return nil
}

// HeartbeatRPC is the liveness probe. It answers immediately and must
// never touch the store or the propagator.
func (r *Replica) HeartbeatRPC(req models.NoParam, res *models.NoParam) error {
	return nil
}
