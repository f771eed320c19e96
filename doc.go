/*
Package transferdesk is the headless core of an administration console for a
closed-loop transfer-account platform.

It keeps one authenticated session against the platform API and a normalized,
in-memory copy of the users, transfer accounts and credit transfers an
administrator works with. Hosts (the bundled CLI, the HTTP server, or any Go
program) drive it by dispatching actions and reading state snapshots.

# Concept

Every change is an Action. Hosts dispatch trigger actions (LOGIN_REQUEST,
EDIT_TRANSFER_ACCOUNT_REQUEST, ...). The bus applies each action to the store
in dispatch order and hands it to the orchestrator, which runs the matching
flow in its own goroutine: it calls the API, persists tokens, normalizes the
returned entities and dispatches the outcome actions that update the store.

# Usage

	console, err := transferdesk.New("https://platform.example.com/api",
		transferdesk.WithTokenStorage(file.New("")),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer console.Close()

	ctx := context.Background()

	// Silent refresh of a stored session.
	state := console.Start(ctx)
	if state.Auth != domain.StateLoggedIn {
		state, err = console.Do(ctx, domain.LoginRequest, domain.LoginCredentials{
			Username: "admin@example.com",
			Password: "secret",
		})
		if err != nil {
			log.Fatal(err) // *domain.ValidationError: nothing was sent
		}
	}

	switch state.Auth {
	case domain.StateTfaPending:
		// Ask for the code, then dispatch VALIDATE_TFA_REQUEST.
	case domain.StateLoggedIn:
		state, _ = console.Do(ctx, domain.LoadTransferAccountsRequest, nil)
		accounts, _ := state.TransferAccountList()
		fmt.Println(len(accounts), "accounts")
	}
*/
package transferdesk
