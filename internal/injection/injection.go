// Package injection applies the user's custom stylesheet and script to the wrapped website.
package injection

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/bytedance/sonic"

	apperrors "ewebapp/internal/infrastructure/errors"
	"ewebapp/internal/infrastructure/logging"
)

const styleElementID = "ewebapp-custom-css"

// insertStyle replaces the contents of a single <style> element so repeated loads don't stack copies
const insertStyle = `(function(css){var s=document.getElementById(%q);if(!s){s=document.createElement('style');s.id=%q;(document.head||document.documentElement).appendChild(s);}s.textContent=css;})(%s);`

// Executor runs script in the page
type Executor func(js string)

// Options selects what to inject and from where
type Options struct {
	InjectCSS bool
	CSSPath   string
	InjectJS  bool
	JSPath    string
}

// Injector reads the custom files off the calling goroutine and hands their
// contents to the page. CSS waits for the page-loaded signal; JS runs as soon
// as its read completes. A failure on one side is logged and never affects the other.
type Injector struct {
	opts   Options
	exec   Executor
	logger logging.Logger

	wg     sync.WaitGroup
	jsOnce sync.Once
	readFn func(path string) ([]byte, error)
}

// New creates an Injector
func New(opts Options, exec Executor, logger logging.Logger) *Injector {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Injector{
		opts:   opts,
		exec:   exec,
		logger: logger,
		readFn: os.ReadFile,
	}
}

// Start begins the custom script read. Later calls do nothing.
func (i *Injector) Start() {
	if !i.opts.InjectJS {
		return
	}
	i.jsOnce.Do(func() {
		i.wg.Add(1)
		go func() {
			defer i.wg.Done()
			i.injectJS()
		}()
	})
}

// PageLoaded reads the custom stylesheet and inserts it into the current document
func (i *Injector) PageLoaded() {
	if !i.opts.InjectCSS {
		return
	}
	i.wg.Add(1)
	go func() {
		defer i.wg.Done()
		i.injectCSS()
	}()
}

// Wait blocks until in-flight reads and executions finish
func (i *Injector) Wait() {
	i.wg.Wait()
}

func (i *Injector) injectJS() {
	start := time.Now()
	data, err := i.read("injection.ReadJS", i.opts.JSPath)
	if err != nil {
		return
	}

	if err := i.run(string(data)); err != nil {
		logging.LogError(i.logger, err, "inject_js", map[string]interface{}{"path": i.opts.JSPath})
		return
	}
	logging.LogOperation(i.logger, "inject_js", time.Since(start), map[string]interface{}{"bytes": len(data)})
}

func (i *Injector) injectCSS() {
	start := time.Now()
	data, err := i.read("injection.ReadCSS", i.opts.CSSPath)
	if err != nil {
		return
	}

	quoted, err := sonic.Marshal(string(data))
	if err != nil {
		logging.LogError(i.logger, apperrors.New("injection.QuoteCSS", err, apperrors.ErrCodeInternal), "inject_css", nil)
		return
	}

	if err := i.run(fmt.Sprintf(insertStyle, styleElementID, styleElementID, quoted)); err != nil {
		logging.LogError(i.logger, err, "inject_css", map[string]interface{}{"path": i.opts.CSSPath})
		return
	}
	logging.LogOperation(i.logger, "inject_css", time.Since(start), map[string]interface{}{"bytes": len(data)})
}

func (i *Injector) read(op, path string) ([]byte, error) {
	data, err := i.readFn(path)
	if err != nil {
		appErr := apperrors.HandleResourceError(op, path, err)
		logging.LogError(i.logger, appErr, op, nil)
		return nil, appErr
	}
	return data, nil
}

// run hands js to the executor, turning a panic into an error
func (i *Injector) run(js string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = apperrors.New("injection.Exec", fmt.Errorf("executor panicked: %v", r), apperrors.ErrCodeInternal)
		}
	}()
	if i.exec == nil {
		return apperrors.New("injection.Exec", fmt.Errorf("no executor"), apperrors.ErrCodeInternal)
	}
	i.exec(js)
	return nil
}
