package eresearch

import (
	"context"
	"fmt"
	"time"

	"cbslwatch-backend/lib/scraper"

	"github.com/chromedp/chromedp"
)

// runStep executes one named stage of the form walk. the step name
// survives into the error so a failed attempt can be placed from logs
// alone.
func runStep(ctx context.Context, name string, actions ...chromedp.Action) error {
	if err := chromedp.Run(ctx, actions...); err != nil {
		return scraper.AutomationStepError{Step: name, Cause: err}
	}
	return nil
}

// setCheckbox ticks a checkbox unless it is already ticked. the click
// goes through script because several of the form's checkboxes sit
// under overlapping labels that swallow synthetic mouse events.
func setCheckbox(id string) chromedp.Tasks {
	script := fmt.Sprintf(`(function() {
		var el = document.getElementById(%q);
		if (!el) { return false; }
		el.scrollIntoView({block: 'center'});
		if (!el.checked) { el.click(); }
		return true;
	})()`, id)

	return chromedp.Tasks{
		chromedp.WaitVisible(id, chromedp.ByID),
		evaluateExpecting(script, "checkbox "+id),
	}
}

// selectByText picks a dropdown option by its visible label.
func selectByText(id, label string) chromedp.Tasks {
	return selectOption(id, fmt.Sprintf(`opt.text.trim() === %q`, label), "option "+label)
}

// selectByValue picks a dropdown option by its value attribute.
func selectByValue(id, value string) chromedp.Tasks {
	return selectOption(id, fmt.Sprintf(`opt.value === %q`, value), "option value "+value)
}

func selectOption(id, predicate, what string) chromedp.Tasks {
	script := fmt.Sprintf(`(function() {
		var sel = document.getElementById(%q);
		if (!sel) { return false; }
		for (var i = 0; i < sel.options.length; i++) {
			var opt = sel.options[i];
			if (%s) {
				sel.selectedIndex = i;
				sel.dispatchEvent(new Event('change', {bubbles: true}));
				return true;
			}
		}
		return false;
	})()`, id, predicate)

	return chromedp.Tasks{
		chromedp.WaitVisible(id, chromedp.ByID),
		evaluateExpecting(script, what),
	}
}

// enterDate clears and retypes one of the window inputs.
func enterDate(id string, value time.Time) chromedp.Tasks {
	return chromedp.Tasks{
		chromedp.WaitVisible(id, chromedp.ByID),
		chromedp.Clear(id, chromedp.ByID),
		chromedp.SendKeys(id, value.Format(wizardDateLayout), chromedp.ByID),
	}
}

func clickButton(id string) chromedp.Tasks {
	return chromedp.Tasks{
		chromedp.WaitVisible(id, chromedp.ByID),
		chromedp.Click(id, chromedp.ByID),
	}
}

// tickAllSeries walks every series checkbox the expanded list shows and
// ticks the ones that are enabled, visible and still clear. returns
// how many it ticked through the out param so the caller can insist on
// progress.
func tickAllSeries(selector string, ticked *int) chromedp.Tasks {
	script := fmt.Sprintf(`(function() {
		var boxes = document.querySelectorAll(%q);
		var n = 0;
		for (var i = 0; i < boxes.length; i++) {
			var cb = boxes[i];
			cb.scrollIntoView({block: 'center'});
			if (!cb.disabled && cb.offsetParent !== null && !cb.checked) {
				cb.click();
				n++;
			}
		}
		return n;
	})()`, selector)

	return chromedp.Tasks{
		chromedp.WaitReady(selector, chromedp.ByQuery),
		chromedp.Evaluate(script, ticked),
	}
}

// confirmSelection accepts the "add data" dialog the site raises after
// the series list is submitted.
func confirmSelection() chromedp.Tasks {
	return chromedp.Tasks{
		chromedp.WaitVisible(confirmYesXPath, chromedp.BySearch),
		chromedp.Click(confirmYesXPath, chromedp.BySearch),
		chromedp.Sleep(2 * time.Second),
	}
}

// evaluateExpecting runs script and fails when it reports the target
// element missing.
func evaluateExpecting(script, what string) chromedp.ActionFunc {
	return func(ctx context.Context) error {
		var ok bool
		if err := chromedp.Evaluate(script, &ok).Do(ctx); err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%s not found on page", what)
		}
		return nil
	}
}

// clickDownload starts the export. the image button is often covered
// by the page's floating header, so it is scrolled clear first and
// clicked by script when the real click is intercepted.
func clickDownload() chromedp.ActionFunc {
	return func(ctx context.Context) error {
		err := chromedp.Run(ctx,
			chromedp.WaitReady(downloadImage, chromedp.ByID),
			chromedp.Evaluate(fmt.Sprintf(
				`document.getElementById(%q).scrollIntoView({block: 'center'}); window.scrollBy(0, -200);`,
				downloadImage), nil),
			chromedp.WaitVisible(downloadImage, chromedp.ByID),
		)
		if err != nil {
			return err
		}
		if err := chromedp.Click(downloadImage, chromedp.ByID).Do(ctx); err != nil {
			return chromedp.Evaluate(
				fmt.Sprintf(`document.getElementById(%q).click();`, downloadImage), nil,
			).Do(ctx)
		}
		return nil
	}
}
