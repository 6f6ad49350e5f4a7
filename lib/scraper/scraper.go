package scraper

// scrapers in this tree are read-only and mostly stateless, each method is
// independent of the others and the output depends solely on the input.
// EXCEPT for the export wizard, which walks a server-side form whose state
// lives in the upstream session. (thankfully that is the only one)

// each scraping method generally has this structure:
// 1. make assertions on input validity.
// 2. transform input into an HTTP request (method, headers, body) or a
//    sequence of browser steps.
// 3. make the request / run the steps.
// 4. make assertions on response validity. (non-empty body, expected table
//    shape, expected status, etc...)
// 5. transform the response into the output structure.

// the response -> output step is usually goquery selectors into a struct or
// slice of structs, sometimes a workbook sheet or a pdf page instead.

// failures split two ways:
//  - source-level: the page/workbook/pdf could not be fetched or yielded
//    nothing usable. these return a typed error from this package and the
//    caller decides whether to retry or fall back to cached data.
//  - row-level: one row or cell of an otherwise fine document failed to
//    parse. these never abort the scrape, the row is skipped (or the cell
//    recorded as absent) and a warning is logged.
