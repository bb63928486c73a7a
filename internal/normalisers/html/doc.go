// Package html provides a TextNormaliser for headline text scraped from
// HTML pages and feeds. It removes markup with bluemonday's strict policy
// and decodes entities.
package html
