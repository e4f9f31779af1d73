package logsvc

import (
	"context"
	"fmt"
	"log"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/trezcool/chakula/core"
	"github.com/trezcool/chakula/core/user"
)

// RollbarLogger prints through a std logger and reports to its own Rollbar client once enabled.
type RollbarLogger struct {
	std    *log.Logger
	client *rollbar.Client
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	client := rollbar.NewAsync(conf.RollbarToken, conf.Env, conf.Build, conf.Server.Host, conf.WorkDir)
	client.SetStackTracer(errors.StackTracer)
	client.SetCustom(map[string]interface{}{"app": conf.AppName})
	return &RollbarLogger{std: std, client: client}
}

func (l *RollbarLogger) Enable(enabled bool) {
	l.client.SetEnabled(enabled)
}

// Close waits for pending reports to be sent.
func (l *RollbarLogger) Close() error {
	return l.client.Close()
}

// report carries what a log call sends to Rollbar.
type report struct {
	ctx    context.Context // holds the rollbar.Person, if any
	err    error
	extras map[string]interface{}
}

// newReport sorts log args: the first error is reported with its stack, the first user.User becomes
// the Rollbar person, maps are merged into the extra data and anything else is kept under "args".
func newReport(msg string, args []interface{}) report {
	r := report{
		ctx:    context.Background(),
		extras: map[string]interface{}{"message": msg},
	}
	var usrSet bool
	var others []interface{}
	for _, arg := range args {
		switch a := arg.(type) {
		case user.User:
			if !usrSet {
				r.ctx = rollbar.NewPersonContext(r.ctx, &rollbar.Person{Id: a.ID, Username: a.FullName(), Email: a.Email})
				r.extras["user_role"] = a.Role
				r.extras["user_status"] = a.Status
				usrSet = true
			}
		case error:
			if r.err == nil {
				r.err = a
			} else {
				others = append(others, a.Error())
			}
		case map[string]interface{}:
			for k, v := range a {
				r.extras[k] = v
			}
		default:
			others = append(others, fmt.Sprintf("%+v", a))
		}
	}
	if len(others) > 0 {
		r.extras["args"] = others
	}
	return r
}

func (l *RollbarLogger) send(level, msg string, args []interface{}) {
	r := newReport(msg, args)
	if r.err != nil {
		l.client.ErrorWithExtrasAndContext(r.ctx, level, r.err, r.extras)
	} else {
		l.client.MessageWithExtrasAndContext(r.ctx, level, msg, r.extras)
	}

	l.std.Println(msg)
	for _, arg := range args {
		l.std.Printf("%+v\n", arg)
	}
}

func (l *RollbarLogger) Debug(msg string, args ...interface{}) {
	l.send(rollbar.DEBUG, msg, args)
}

func (l *RollbarLogger) Info(msg string, args ...interface{}) {
	l.send(rollbar.INFO, msg, args)
}

func (l *RollbarLogger) Warn(msg string, args ...interface{}) {
	l.send(rollbar.WARN, msg, args)
}

func (l *RollbarLogger) Error(msg string, args ...interface{}) {
	l.send(rollbar.ERR, msg, args)
}

func (l *RollbarLogger) Fatal(msg string, args ...interface{}) {
	l.send(rollbar.CRIT, msg, args)
	l.client.Wait()
	l.std.Fatal(msg)
}
