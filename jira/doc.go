// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package jira adapts the Jira REST API to the engine's TaskSource.

Queries of the form "key=FLEX-365 FLEX-366" fetch issues individually;
"jql=..." runs a search. Story points are written to a configurable custom
field, one PUT per issue, so a single unreachable issue fails alone rather
than aborting the batch.
*/
package jira
