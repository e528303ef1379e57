// Package process supervises the vendor SDK processes that talk to vendor
// hubs on the hub's behalf.
//
// Each configuration entry may name an SDK command. The hub starts it with
// the entry's identity and MQTT link topic in its environment, logs its
// output, and restarts it with exponential backoff when it exits. An SDK
// that exits with ExitConfigError (78) is not restarted: bad credentials
// will not fix themselves. A health check, typically "was the coordinator's
// last snapshot a success", kills a failing SDK so it is restarted.
//
// Example usage:
//
//	mgr := process.NewManager(process.Config{
//	    Name:             "comelit/01J0COMELIT",
//	    Binary:           "/usr/libexec/grayhub/comelit-sdk",
//	    Env:              []string{"GRAYHUB_ENTRY_ID=01J0COMELIT"},
//	    RestartOnFailure: true,
//	})
//
//	if err := mgr.Start(ctx); err != nil {
//	    return err
//	}
//	defer mgr.Stop()
package process
