// Package worker runs commands against a target: the local host, root via
// sudo, a systemd-nspawn container tree, or a remote machine over ssh.
//
// Every worker exposes the same capability set (Call, CheckCall,
// CheckOutput, InstallFile, RemoteDir, Scratch) and the same lifecycle:
// Enter opens the worker, Leave closes it, and nested Enter/Leave pairs
// only move a depth counter. Resources acquired when the depth goes from
// 0 to 1 are released, last first, when it returns to 0.
//
// Workers compose by wrapping:
//
//	host := worker.NewHostWorker(nil, nil)
//	root := worker.NewSudoWorker(host, nil)
//	chroot := worker.NewNspawnWorker(root, "/srv/base", nil, nil)
//
//	err := worker.With(ctx, root, func() error {
//	    return chroot.CheckCall(ctx, []string{"apt-get", "update"})
//	})
//
// Each wrapping layer prepends its own fixed prefix to argv and passes the
// rest through unchanged, so the command above reaches the host as
//
//	env - /usr/bin/sudo -n -H systemd-nspawn --directory=/srv/base --as-pid2 env apt-get update
//
// The composition order is decided by the caller. Wrapping Nspawn inside
// Sudo (as above) runs systemd-nspawn as root; wrapping the other way round
// would run sudo inside the container instead.
//
// Workers are not safe for concurrent use.
package worker
