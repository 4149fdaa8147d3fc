// Command autopost scans work folders, publishes scheduled posts to
// Instagram and X, groups raw photos by capture time, mails students about
// their published works and exports the public gallery.
//
// Scheduling is external: run `autopost post` from cron or a systemd timer.
package main
