package client

import (
	"ReplicatedChat/models"
)

// CreateAccount registers a new account with the given credentials.
func (c *ChatClient) CreateAccount(username, password string) (models.ServerResponse, error) {
	var res models.ServerResponse
	err := c.call("Replica.CreateAccountRPC", models.Credentials{Username: username, Password: password}, &res)
	return res, err
}

// DeleteAccount removes the account; the password must match.
func (c *ChatClient) DeleteAccount(username, password string) (models.ServerResponse, error) {
	var res models.ServerResponse
	err := c.call("Replica.DeleteAccountRPC", models.Credentials{Username: username, Password: password}, &res)
	return res, err
}

// Login marks the account logged in so it can send and receive.
func (c *ChatClient) Login(username, password string) (models.ServerResponse, error) {
	var res models.ServerResponse
	err := c.call("Replica.LoginRPC", models.Credentials{Username: username, Password: password}, &res)
	return res, err
}

// Logout marks the account logged out, ending its message stream.
func (c *ChatClient) Logout(username string) (models.ServerResponse, error) {
	var res models.ServerResponse
	err := c.call("Replica.LogoutRPC", models.Credentials{Username: username}, &res)
	return res, err
}

// ListAccounts returns the usernames matching the regex pattern,
// space-joined.
func (c *ChatClient) ListAccounts(pattern string) (models.AccountList, error) {
	var res models.AccountList
	err := c.call("Replica.ListAccountsRPC", models.SearchTerm{Pattern: pattern}, &res)
	return res, err
}

// SendMessage delivers text from source's account to destination's
// mailbox.
func (c *ChatClient) SendMessage(source, destination, text string) (models.ServerResponse, error) {
	var res models.ServerResponse
	err := c.call("Replica.SendMessageRPC",
		models.MessageInfo{Source: source, Destination: destination, Text: text}, &res)
	return res, err
}
