package sqlinline

const QSelectDraft = `--sql 3f0c2a8e-6d41-4b7a-9e25-8c1d7f4b2a60
select payload
from campaign_drafts
where slot = $1::text;
`

const QUpsertDraft = `--sql b84e1d37-2c95-4f0a-a6d3-51e9c07b8f12
insert into campaign_drafts(slot, payload, revision, saved_at)
values ($1::text, $2::jsonb, $3::text, $4::timestamptz)
on conflict (slot) do update
set payload = excluded.payload,
    revision = excluded.revision,
    saved_at = excluded.saved_at;
`

const QDeleteDraft = `--sql 6a9d5e02-f3b8-4c17-8d64-2e0b9a7c13f5
delete from campaign_drafts
where slot = $1::text;
`

const QCreateDraftsTable = `--sql d17c4b9a-58e2-4e3f-b0a6-9f3e25c8d741
create table if not exists campaign_drafts (
    slot text primary key,
    payload jsonb not null,
    revision text not null default '',
    saved_at timestamptz not null default now()
);
`
